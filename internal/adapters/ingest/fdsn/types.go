package fdsn

// Metadata is the collection header of a geojson response
type Metadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	API       string `json:"api"`
	Count     int    `json:"count"`
}

// Properties are the event attributes of one feature. Pointer fields are
// nullable upstream and stay nil when absent or null
type Properties struct {
	Mag     *float64 `json:"mag"`
	Place   *string  `json:"place"`
	Time    *int64   `json:"time"`    // ms since epoch
	Updated *int64   `json:"updated"` // ms since epoch
	URL     *string  `json:"url"`
	Status  *string  `json:"status"`
	Net     *string  `json:"net"`
	Code    *string  `json:"code"`
	IDs     *string  `json:"ids"`     // ",us1000abc,ci38457511,"
	Sources *string  `json:"sources"` // ",us,ci,"
	Nst     *int     `json:"nst"`
	Dmin    *float64 `json:"dmin"`
	RMS     *float64 `json:"rms"`
	Gap     *float64 `json:"gap"`
	MagType *string  `json:"magType"`
	Type    *string  `json:"type"`
	Title   *string  `json:"title"`
}

// Geometry is a geojson Point: [longitude, latitude, depth]
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates []*float64 `json:"coordinates"`
}

// Coord returns coordinate i, nil when absent
func (g *Geometry) Coord(i int) *float64 {
	if g == nil || i < 0 || i >= len(g.Coordinates) {
		return nil
	}
	return g.Coordinates[i]
}

// Feature is one event of the collection
type Feature struct {
	Type       string     `json:"type"`
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
	Geometry   *Geometry  `json:"geometry"`
}

// collection is the full response document; only the header line decodes into it
type collection struct {
	Type     string    `json:"type"`
	Metadata *Metadata `json:"metadata"`
	Features []Feature `json:"features"`
	BBox     []float64 `json:"bbox"`
}

// Batch is what one line of the response yields. Usually a single feature;
// the header line may carry several, or none, plus the collection metadata
type Batch struct {
	Features []Feature
	Metadata *Metadata
}

// Empty reports whether the batch carries nothing
func (b Batch) Empty() bool { return len(b.Features) == 0 && b.Metadata == nil }

// Stats summarizes a consumed response
type Stats struct {
	Fragments int   // non-blank lines seen
	Features  int   // features decoded
	Dropped   int   // lines skipped because they could not be decoded
	Bytes     int64 // bytes read including newlines
}
