// Package ingest reads the NOW occurrence export into memory.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lessardlab/nowclean/internal/model"
)

// ReadOccurrences decodes a NOW export into occurrence records. The NOW
// database ships tab-separated with a header row; plain CSV is accepted for
// .csv files. Empty fields decode to nil pointers, which is how missing ages
// and coordinates are represented downstream.
func ReadOccurrences(path string) ([]model.Occurrence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer func() { _ = f.Close() }()

	return DecodeOccurrences(f, delimiterFor(path))
}

// DecodeOccurrences decodes occurrence records from r using the given field
// delimiter.
func DecodeOccurrences(r io.Reader, delimiter rune) ([]model.Occurrence, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.LazyQuotes = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read header")
	}
	if err := checkHeader(dec.Header()); err != nil {
		return nil, err
	}

	var occs []model.Occurrence
	for {
		var o model.Occurrence
		if err := dec.Decode(&o); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "ingest: decode record")
		}
		occs = append(occs, o)
	}

	if len(occs) == 0 {
		return nil, eris.New("ingest: no records in input")
	}

	zap.L().Info("occurrences loaded", zap.Int("records", len(occs)))
	return occs, nil
}

// requiredColumns are the NOW export columns the pipeline cannot run
// without. Annotation columns are always optional.
var requiredColumns = []string{"LIDNUM", "GENUS", "SPECIES", "MAX_AGE", "MIN_AGE", "LAT", "LONG"}

// checkHeader rejects inputs missing required columns up front, instead of
// letting every record decode to an unusable zero value.
func checkHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}

	var missing []string
	for _, c := range requiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("ingest: input is missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func delimiterFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ','
	}
	return '\t'
}
