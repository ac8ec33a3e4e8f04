package pipeline

import (
	"github.com/lessardlab/nowclean/internal/chron"
	"github.com/lessardlab/nowclean/internal/model"
)

// Subset keeps only records that can participate in downstream stages: a
// locality identifier and at least one side of the age bracket. Input is
// never mutated; every stage returns a fresh slice.
func Subset(occs []model.Occurrence) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(occs))
	for _, o := range occs {
		if o.LocalityID == 0 {
			continue
		}
		if o.MinAge == nil && o.MaxAge == nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ComputeMidpoints fills MidAge with the mean of the age bracket, using the
// present side alone when one is missing. Inverted brackets are swapped
// rather than rejected.
func ComputeMidpoints(occs []model.Occurrence) []model.Occurrence {
	out := make([]model.Occurrence, len(occs))
	copy(out, occs)
	for i := range out {
		o := &out[i]
		if o.MinAge != nil && o.MaxAge != nil && *o.MinAge > *o.MaxAge {
			o.MinAge, o.MaxAge = o.MaxAge, o.MinAge
		}
		if mid, ok := o.AgeMidpoint(); ok {
			o.MidAge = model.Float64(mid)
		}
	}
	return out
}

// ClassifyStages annotates each record with its geological stage. Records
// whose midpoint falls in a gap of the stage table keep an empty stage.
func ClassifyStages(occs []model.Occurrence, table *chron.Table) []model.Occurrence {
	out := make([]model.Occurrence, len(occs))
	copy(out, occs)
	for i := range out {
		o := &out[i]
		if o.MidAge == nil {
			continue
		}
		if name, ok := table.Classify(*o.MidAge); ok {
			o.Stage = name
		}
	}
	return out
}
