// Package chron maps continuous fossil ages (Ma) to named geological stages
// and back to representative midpoint ages.
package chron

import (
	"math"

	"github.com/rotisserie/eris"
)

// Stage is a named geological time interval with an inclusive integer age
// range in millions of years and a representative midpoint age.
type Stage struct {
	Name     string  `yaml:"name"`
	Lower    int     `yaml:"lower"`
	Upper    int     `yaml:"upper"`
	Midpoint float64 `yaml:"midpoint"`
}

// Table is an ordered stage lookup. Classification scans the table in order
// and returns the first containing range, so ages sitting on a boundary
// shared by two stages (5, 11, 15, 20 in the default table) resolve to the
// earlier entry. The default ordering puts the older stage first.
type Table struct {
	stages []Stage
	byName map[string]int
}

// defaultStages covers the late Neogene stages present in the NOW data,
// oldest first. Midpoints are the mean of the published boundary pair and may
// differ slightly from the integer classification bounds.
var defaultStages = []Stage{
	{Name: "Aquitanian", Lower: 20, Upper: 23, Midpoint: 21.5},
	{Name: "Burdigalian", Lower: 15, Upper: 20, Midpoint: 17.5},
	{Name: "Langhian", Lower: 14, Upper: 15, Midpoint: 14.5},
	{Name: "Serravallian", Lower: 11, Upper: 13, Midpoint: 12.0},
	{Name: "Tortonian", Lower: 8, Upper: 11, Midpoint: 9.5},
	{Name: "Messinian", Lower: 5, Upper: 7, Midpoint: 6.0},
	{Name: "Zanclean", Lower: 4, Upper: 5, Midpoint: 4.5},
	{Name: "Piacenzian", Lower: 2, Upper: 3, Midpoint: 2.5},
}

// Default returns the built-in late Neogene stage table.
func Default() *Table {
	t, err := New(defaultStages)
	if err != nil {
		// The built-in table is validated by tests; a failure here is a bug.
		panic(err)
	}
	return t
}

// New builds a Table from an ordered stage list. Ranges may share a single
// boundary integer with another stage but must not otherwise overlap.
func New(stages []Stage) (*Table, error) {
	if len(stages) == 0 {
		return nil, eris.New("chron: empty stage table")
	}

	byName := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, eris.Errorf("chron: stage %d has no name", i)
		}
		if s.Lower > s.Upper {
			return nil, eris.Errorf("chron: stage %q has inverted range [%d, %d]", s.Name, s.Lower, s.Upper)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, eris.Errorf("chron: duplicate stage %q", s.Name)
		}
		byName[s.Name] = i
	}

	for i := range stages {
		for j := i + 1; j < len(stages); j++ {
			lo := max(stages[i].Lower, stages[j].Lower)
			hi := min(stages[i].Upper, stages[j].Upper)
			// A single shared boundary integer is tolerated; anything wider
			// makes classification order-dependent over an interior range.
			if lo < hi {
				return nil, eris.Errorf("chron: stages %q and %q overlap on [%d, %d]",
					stages[i].Name, stages[j].Name, lo, hi)
			}
		}
	}

	cp := make([]Stage, len(stages))
	copy(cp, stages)
	return &Table{stages: cp, byName: byName}, nil
}

// Classify rounds age to the nearest integer and returns the name of the
// first stage whose inclusive range contains it. ok is false when no declared
// range covers the value; gaps between stages are data, not errors.
func (t *Table) Classify(age float64) (string, bool) {
	r := int(math.Round(age))
	for _, s := range t.stages {
		if r >= s.Lower && r <= s.Upper {
			return s.Name, true
		}
	}
	return "", false
}

// Midpoint returns the representative age for a stage name. ok is false for
// unrecognized names.
func (t *Table) Midpoint(name string) (float64, bool) {
	i, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.stages[i].Midpoint, true
}

// Stages returns a copy of the ordered stage table.
func (t *Table) Stages() []Stage {
	cp := make([]Stage, len(t.stages))
	copy(cp, t.stages)
	return cp
}
