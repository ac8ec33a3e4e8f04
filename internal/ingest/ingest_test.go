package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "LIDNUM\tNAME\tORDER\tFAMILY\tGENUS\tSPECIES\tMAX_AGE\tMIN_AGE\tLAT\tLONG\n" +
	"1001\tSamos Main Bone Beds\tPerissodactyla\tEquidae\tHipparion\tmatthewi\t7.3\t7.1\t37.74\t26.83\n" +
	"1002\tPikermi\tArtiodactyla\tBovidae\tGazella\tcapricornis\t\t\t\t\n"

func TestDecodeOccurrencesTSV(t *testing.T) {
	occs, err := DecodeOccurrences(strings.NewReader(sampleTSV), '\t')
	require.NoError(t, err)
	require.Len(t, occs, 2)

	assert.Equal(t, int64(1001), occs[0].LocalityID)
	assert.Equal(t, "Samos Main Bone Beds", occs[0].LocalityName)
	assert.Equal(t, "Hipparion", occs[0].Genus)
	require.NotNil(t, occs[0].MaxAge)
	assert.InDelta(t, 7.3, *occs[0].MaxAge, 0.001)
	require.NotNil(t, occs[0].Lat)
	assert.InDelta(t, 37.74, *occs[0].Lat, 0.001)

	// Empty fields decode to nil pointers, not zeroes.
	assert.Nil(t, occs[1].MaxAge)
	assert.Nil(t, occs[1].MinAge)
	assert.Nil(t, occs[1].Lat)
	assert.Nil(t, occs[1].Lon)
}

func TestDecodeOccurrencesCSV(t *testing.T) {
	in := "LIDNUM,GENUS,SPECIES,MIN_AGE,MAX_AGE,LAT,LONG\n" +
		"42,Hipparion,primigenium,9.5,11.1,38.1,23.7\n"

	occs, err := DecodeOccurrences(strings.NewReader(in), ',')
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, int64(42), occs[0].LocalityID)
	require.NotNil(t, occs[0].MinAge)
	assert.InDelta(t, 9.5, *occs[0].MinAge, 0.001)
}

func TestDecodeOccurrencesEmpty(t *testing.T) {
	header := "LIDNUM\tGENUS\tSPECIES\tMAX_AGE\tMIN_AGE\tLAT\tLONG\n"
	_, err := DecodeOccurrences(strings.NewReader(header), '\t')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")
}

// An input with the wrong columns aborts at the header, before any record
// can decode to an unusable zero value.
func TestDecodeOccurrencesMissingColumns(t *testing.T) {
	in := "SITE\tGENUS\tSPECIES\tMAX_AGE\tMIN_AGE\tLAT\tLONG\n" +
		"1\tHipparion\tprimigenium\t7.3\t7.1\t37.7\t26.8\n"

	_, err := DecodeOccurrences(strings.NewReader(in), '\t')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "LIDNUM")
	assert.NotContains(t, err.Error(), "GENUS")
}

func TestReadOccurrences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "now_export.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sampleTSV), 0o644))

	occs, err := ReadOccurrences(path)
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func TestReadOccurrencesMissingFile(t *testing.T) {
	_, err := ReadOccurrences(filepath.Join(t.TempDir(), "nope.tsv"))
	require.Error(t, err)
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, ',', delimiterFor("export.csv"))
	assert.Equal(t, ',', delimiterFor("export.CSV"))
	assert.Equal(t, '\t', delimiterFor("export.tsv"))
	assert.Equal(t, '\t', delimiterFor("export.txt"))
}
