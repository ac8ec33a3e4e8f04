package pipeline

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lessardlab/nowclean/internal/model"
)

// indeterminate matches the NOW placeholders for unresolved taxonomy.
var indeterminate = map[string]bool{
	"indet.":         true,
	"indet":          true,
	"gen.":           true,
	"sp.":            true,
	"sp":             true,
	"incertae sedis": true,
}

var genusCaser = cases.Title(language.English)

// FilterTaxa drops records with indeterminate genus or species and
// normalizes genus casing (NOW mixes "Hipparion" and "HIPPARION").
func FilterTaxa(occs []model.Occurrence) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		genus := strings.TrimSpace(o.Genus)
		species := strings.TrimSpace(o.Species)
		if genus == "" || species == "" {
			continue
		}
		if indeterminate[strings.ToLower(genus)] || indeterminate[strings.ToLower(species)] {
			continue
		}
		o.Genus = genusCaser.String(strings.ToLower(genus))
		o.Species = strings.ToLower(species)
		out = append(out, o)
	}
	return out
}

// SummaryRow is the distinct-species and occurrence count for one
// region-stage combination.
type SummaryRow struct {
	Region      string
	Stage       string
	Species     int
	Occurrences int
}

// Summarize counts distinct species and occurrences per region-stage pair.
// Records missing a region or stage are excluded from grouping. Rows are
// ordered by region then stage.
func Summarize(occs []model.Occurrence) []SummaryRow {
	type group struct {
		species map[string]bool
		count   int
	}
	groups := make(map[[2]string]*group)

	for i := range occs {
		o := &occs[i]
		if o.Region == "" || o.Stage == "" {
			continue
		}
		key := [2]string{o.Region, o.Stage}
		g, ok := groups[key]
		if !ok {
			g = &group{species: make(map[string]bool)}
			groups[key] = g
		}
		g.species[o.SpeciesKey()] = true
		g.count++
	}

	rows := make([]SummaryRow, 0, len(groups))
	for key, g := range groups {
		rows = append(rows, SummaryRow{
			Region:      key[0],
			Stage:       key[1],
			Species:     len(g.species),
			Occurrences: g.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Region != rows[j].Region {
			return rows[i].Region < rows[j].Region
		}
		return rows[i].Stage < rows[j].Stage
	})
	return rows
}

// FilterSampling keeps only records whose region-stage pair has more than
// minSpecies distinct species in the pre-filter summary. Records with a
// missing region or stage are dropped: they cannot witness sufficient
// sampling anywhere.
func FilterSampling(occs []model.Occurrence, minSpecies int) []model.Occurrence {
	sufficient := make(map[[2]string]bool)
	for _, row := range Summarize(occs) {
		if row.Species > minSpecies {
			sufficient[[2]string{row.Region, row.Stage}] = true
		}
	}

	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		if o.Region == "" || o.Stage == "" {
			continue
		}
		if sufficient[[2]string{o.Region, o.Stage}] {
			out = append(out, o)
		}
	}
	return out
}
