package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nowclean",
	Short: "Cleans and annotates NOW fossil-occurrence data",
	Long:  "Subsets the NOW export, classifies ages into geological stages, back-rotates coordinates, joins against region polygons and a uniform grid, and filters to sufficiently sampled region-stage pairs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
