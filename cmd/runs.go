package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lessardlab/nowclean/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded cleaning runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "runs: open store")
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "runs: migrate store")
		}

		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs: list")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSOURCE\tCLEANED\tCREATED")
		for _, r := range runs {
			cleaned := "-"
			if r.Counts != nil {
				cleaned = fmt.Sprintf("%d/%d", r.Counts.Cleaned, r.Counts.Input)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Status, r.Source, cleaned, r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
