package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/export"
	"github.com/lessardlab/nowclean/internal/ingest"
	"github.com/lessardlab/nowclean/internal/pipeline"
	"github.com/lessardlab/nowclean/internal/regions"
	"github.com/lessardlab/nowclean/internal/store"
	"github.com/lessardlab/nowclean/pkg/gplates"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run the full cleaning pipeline over a NOW export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		occPath, _ := cmd.Flags().GetString("occurrences")
		if occPath == "" {
			occPath = cfg.Input.Occurrences
		}
		regPath, _ := cmd.Flags().GetString("regions")
		if regPath == "" {
			regPath = cfg.Input.Regions
		}
		if occPath == "" {
			return eris.New("occurrences path is required (--occurrences or NOWCLEAN_INPUT_OCCURRENCES)")
		}
		if regPath == "" {
			return eris.New("regions shapefile is required (--regions or NOWCLEAN_INPUT_REGIONS)")
		}
		if err := cfg.Validate("clean"); err != nil {
			return err
		}

		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" {
			outPath = cfg.Output.Cleaned
		}
		summaryPath, _ := cmd.Flags().GetString("summary")
		if summaryPath == "" {
			summaryPath = cfg.Output.Summary
		}

		cellDeg, _ := cmd.Flags().GetFloat64("cell-deg")
		if cellDeg <= 0 {
			cellDeg = cfg.Grid.CellDegrees
		}
		minSpecies, _ := cmd.Flags().GetInt("min-species")
		if minSpecies <= 0 {
			minSpecies = cfg.Filter.MinSpecies
		}
		skipRotation, _ := cmd.Flags().GetBool("skip-rotation")

		log := zap.L().With(zap.String("command", "clean"))

		table, err := stageTable()
		if err != nil {
			return err
		}

		occs, err := ingest.ReadOccurrences(occPath)
		if err != nil {
			return eris.Wrap(err, "clean: read occurrences")
		}

		regs, err := regions.Load(regPath, cfg.Input.NameField, cfg.Input.MapIDField)
		if err != nil {
			return eris.Wrap(err, "clean: load regions")
		}
		log.Info("regions loaded", zap.Int("regions", len(regs)))

		var rot gplates.Rotator = gplates.Noop{}
		if !skipRotation && !cfg.Rotation.Skip {
			rot = gplates.NewClient(cfg.Rotation.BaseURL, cfg.Rotation.Model, cfg.Rotation.RPS)
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "clean: open store")
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "clean: migrate store")
		}

		run, err := st.CreateRun(ctx, occPath)
		if err != nil {
			return eris.Wrap(err, "clean: create run")
		}

		p := pipeline.New(table, regs, rot, pipeline.Options{
			CellDegrees: cellDeg,
			MinSpecies:  minSpecies,
			Concurrency: cfg.Rotation.Concurrency,
		})
		result, err := p.Run(ctx, occs)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID); failErr != nil {
				log.Warn("failed to mark run failed", zap.Error(failErr))
			}
			return eris.Wrap(err, "clean: pipeline")
		}

		if _, err := st.SaveOccurrences(ctx, run.ID, result.Cleaned); err != nil {
			return eris.Wrap(err, "clean: save occurrences")
		}
		if _, err := st.SaveGridCells(ctx, run.ID, result.Grid.Cells()); err != nil {
			return eris.Wrap(err, "clean: save grid cells")
		}
		if err := st.SaveSummary(ctx, run.ID, result.Summary); err != nil {
			return eris.Wrap(err, "clean: save summary")
		}
		if err := st.CompleteRun(ctx, run.ID, store.RunCounts{
			Input:     len(occs),
			Cleaned:   len(result.Cleaned),
			Regions:   len(regs),
			GridCells: len(result.Grid.Cells()),
		}); err != nil {
			return eris.Wrap(err, "clean: complete run")
		}

		if err := export.WriteCSV(outPath, result.Cleaned); err != nil {
			return err
		}
		if err := export.WriteSummary(summaryPath, result.Summary, table.Stages()); err != nil {
			return err
		}

		log.Info("clean complete",
			zap.String("run_id", run.ID),
			zap.Int("input", len(occs)),
			zap.Int("cleaned", len(result.Cleaned)),
			zap.String("out", outPath),
		)
		return nil
	},
}

// stageTable returns the configured stage table, preferring a YAML override.
func stageTable() (*chron.Table, error) {
	if cfg.Chron.StagesPath != "" {
		return chron.LoadTable(cfg.Chron.StagesPath)
	}
	return chron.Default(), nil
}

func init() {
	cleanCmd.Flags().String("occurrences", "", "path to NOW occurrence export (TSV or CSV)")
	cleanCmd.Flags().String("regions", "", "path to region polygon shapefile (.shp)")
	cleanCmd.Flags().String("out", "", "path for the cleaned CSV")
	cleanCmd.Flags().String("summary", "", "path for the summary XLSX")
	cleanCmd.Flags().Float64("cell-deg", 0, "grid cell size in degrees")
	cleanCmd.Flags().Int("min-species", 0, "minimum distinct species per region-stage pair")
	cleanCmd.Flags().Bool("skip-rotation", false, "skip plate back-rotation, keep raw coordinates")
	rootCmd.AddCommand(cleanCmd)
}
