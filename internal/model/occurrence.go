// Package model defines the fossil occurrence record shared across the
// cleaning pipeline, the store, and the exporters.
package model

// Occurrence is a single fossil find from the NOW export: taxonomy, an age
// bracket in millions of years, and a present-day coordinate. The annotation
// fields are empty on input and filled in by the pipeline stages.
type Occurrence struct {
	LocalityID   int64    `csv:"LIDNUM"`
	LocalityName string   `csv:"NAME"`
	TaxonOrder   string   `csv:"ORDER"`
	Family       string   `csv:"FAMILY"`
	Genus        string   `csv:"GENUS"`
	Species      string   `csv:"SPECIES"`
	MaxAge       *float64 `csv:"MAX_AGE"`
	MinAge       *float64 `csv:"MIN_AGE"`
	Lat          *float64 `csv:"LAT"`
	Lon          *float64 `csv:"LONG"`

	// Annotations.
	MidAge   *float64 `csv:"MID_AGE"`
	Stage    string   `csv:"STAGE"`
	PaleoLat *float64 `csv:"PALEO_LAT"`
	PaleoLon *float64 `csv:"PALEO_LONG"`
	Region   string   `csv:"REGION"`
	MapID    *int64   `csv:"MAP_ID"`
	GridCell *int64   `csv:"GRID_CELL"`
}

// AgeMidpoint returns the arithmetic mean of the age bracket, falling back to
// whichever side is present when the other is missing. ok is false when both
// sides are missing.
func (o *Occurrence) AgeMidpoint() (float64, bool) {
	switch {
	case o.MinAge != nil && o.MaxAge != nil:
		return (*o.MinAge + *o.MaxAge) / 2, true
	case o.MinAge != nil:
		return *o.MinAge, true
	case o.MaxAge != nil:
		return *o.MaxAge, true
	default:
		return 0, false
	}
}

// HasCoords reports whether the record carries a usable present-day coordinate.
func (o *Occurrence) HasCoords() bool {
	return o.Lat != nil && o.Lon != nil
}

// Coords returns the best available coordinate for spatial assignment,
// preferring the back-rotated position when present.
func (o *Occurrence) Coords() (lon, lat float64, ok bool) {
	if o.PaleoLat != nil && o.PaleoLon != nil {
		return *o.PaleoLon, *o.PaleoLat, true
	}
	if o.HasCoords() {
		return *o.Lon, *o.Lat, true
	}
	return 0, 0, false
}

// SpeciesKey returns the genus-species pair used for distinct-species counts.
func (o *Occurrence) SpeciesKey() string {
	return o.Genus + " " + o.Species
}

// Float64 returns a pointer to v. Convenience for building records.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v. Convenience for building records.
func Int64(v int64) *int64 { return &v }
