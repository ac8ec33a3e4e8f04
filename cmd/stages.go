package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Print the stage table or classify a single age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		table, err := stageTable()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("age") {
			age, _ := cmd.Flags().GetFloat64("age")
			name, ok := table.Classify(age)
			if !ok {
				fmt.Printf("%.2f Ma: no stage\n", age)
				return nil
			}
			mid, _ := table.Midpoint(name)
			fmt.Printf("%.2f Ma: %s (midpoint %.1f Ma)\n", age, name, mid)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tRANGE (Ma)\tMIDPOINT (Ma)")
		for _, s := range table.Stages() {
			fmt.Fprintf(w, "%s\t%d-%d\t%.1f\n", s.Name, s.Lower, s.Upper, s.Midpoint)
		}
		return w.Flush()
	},
}

func init() {
	stagesCmd.Flags().Float64("age", 0, "age in Ma to classify")
	rootCmd.AddCommand(stagesCmd)
}
