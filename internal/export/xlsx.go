package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/pipeline"
)

// WriteSummary writes the diagnostic workbook: one sheet with region-stage
// species counts and one with the stage table used by the run.
func WriteSummary(path string, summary []pipeline.SummaryRow, stages []chron.Stage) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("region_stage_counts")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"region", "stage", "species", "occurrences"} {
		header.AddCell().Value = h
	}
	for _, row := range summary {
		r := sheet.AddRow()
		r.AddCell().Value = row.Region
		r.AddCell().Value = row.Stage
		r.AddCell().SetInt(row.Species)
		r.AddCell().SetInt(row.Occurrences)
	}

	stageSheet, err := f.AddSheet("stages")
	if err != nil {
		return eris.Wrap(err, "export: add stage sheet")
	}
	header = stageSheet.AddRow()
	for _, h := range []string{"stage", "lower_ma", "upper_ma", "midpoint_ma"} {
		header.AddCell().Value = h
	}
	for _, s := range stages {
		r := stageSheet.AddRow()
		r.AddCell().Value = s.Name
		r.AddCell().SetInt(s.Lower)
		r.AddCell().SetInt(s.Upper)
		r.AddCell().SetFloat(s.Midpoint)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("summary workbook written",
		zap.String("path", path),
		zap.Int("rows", len(summary)),
	)
	return nil
}
