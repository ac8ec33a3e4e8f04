// Package export writes run artifacts: the cleaned occurrence table and the
// diagnostic summary workbook.
package export

import (
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/model"
)

// WriteCSV serializes the cleaned table to path. Missing values encode as
// empty fields.
func WriteCSV(path string, occs []model.Occurrence) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)

	for i := range occs {
		if err := enc.Encode(&occs[i]); err != nil {
			return eris.Wrap(err, "export: encode record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}

	zap.L().Info("cleaned table written",
		zap.String("path", path),
		zap.Int("records", len(occs)),
	)
	return nil
}
