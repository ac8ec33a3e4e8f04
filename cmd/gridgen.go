package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/spatial"
	"github.com/lessardlab/nowclean/internal/store"
)

var gridGenCmd = &cobra.Command{
	Use:   "grid-gen",
	Short: "Generate a uniform grid over a bounding box",
	Long:  "Builds the square coordinate grid used for spatial binning and reports its dimensions. With --save the cells are persisted to the store under a new run.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		bboxStr, _ := cmd.Flags().GetString("bbox")
		cellDeg, _ := cmd.Flags().GetFloat64("cell-deg")
		save, _ := cmd.Flags().GetBool("save")
		if cellDeg <= 0 {
			cellDeg = cfg.Grid.CellDegrees
		}

		ext, err := parseBBox(bboxStr)
		if err != nil {
			return err
		}

		grid, err := spatial.NewGrid(ext, cellDeg)
		if err != nil {
			return eris.Wrap(err, "grid-gen: build grid")
		}

		fmt.Printf("grid: %d cols x %d rows = %d cells of %.1f°\n",
			grid.Cols, grid.Rows, len(grid.Cells()), grid.CellDeg)
		fmt.Printf("extent: [%.1f, %.1f] to [%.1f, %.1f]\n",
			grid.Origin.MinLon, grid.Origin.MinLat, grid.Origin.MaxLon, grid.Origin.MaxLat)

		if !save {
			return nil
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "grid-gen: open store")
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "grid-gen: migrate store")
		}

		run, err := st.CreateRun(ctx, "grid-gen")
		if err != nil {
			return eris.Wrap(err, "grid-gen: create run")
		}
		n, err := st.SaveGridCells(ctx, run.ID, grid.Cells())
		if err != nil {
			return eris.Wrap(err, "grid-gen: save cells")
		}
		if err := st.CompleteRun(ctx, run.ID, store.RunCounts{GridCells: int(n)}); err != nil {
			return eris.Wrap(err, "grid-gen: complete run")
		}

		zap.L().Info("grid persisted",
			zap.String("run_id", run.ID),
			zap.Int64("cells", n),
		)
		return nil
	},
}

// parseBBox parses "minLon,minLat,maxLon,maxLat".
func parseBBox(s string) (spatial.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return spatial.Extent{}, eris.Errorf("grid-gen: bbox must be minLon,minLat,maxLon,maxLat, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return spatial.Extent{}, eris.Wrapf(err, "grid-gen: parse bbox value %q", p)
		}
		vals[i] = v
	}
	ext := spatial.Extent{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if ext.IsEmpty() {
		return spatial.Extent{}, eris.Errorf("grid-gen: inverted bbox %q", s)
	}
	return ext, nil
}

func init() {
	gridGenCmd.Flags().String("bbox", "-180,-90,180,90", "bounding box as minLon,minLat,maxLon,maxLat")
	gridGenCmd.Flags().Float64("cell-deg", 0, "cell size in degrees")
	gridGenCmd.Flags().Bool("save", false, "persist the grid to the store")
	rootCmd.AddCommand(gridGenCmd)
}
