// Package ingest adapts the fdsn client to the backfill ports and maps
// decoded features to rows
package ingest

import (
	"time"

	"quakeingest/internal/services/backfill/domain"

	pstrings "quakeingest/internal/platform/strings"
	ptime "quakeingest/internal/platform/time"
)

// mapper implements domain.Mapper for one time zone
type mapper struct{ loc *time.Location }

// NewMapper returns a Mapper converting event times into loc (nil means Local)
func NewMapper(loc *time.Location) domain.Mapper { return mapper{loc: loc} }

func (m mapper) ToRows(f domain.Feature) (domain.EventRows, error) { return ToRows(f, m.loc) }

// ToRows maps a feature to its event, association and contribution rows.
// Absent or null attributes become nil, never a zero value; blank strings count
// as absent. Coordinates follow geojson order: longitude, latitude, depth
func ToRows(f domain.Feature, loc *time.Location) (domain.EventRows, error) {
	if f.ID == "" {
		return domain.EventRows{}, domain.ErrMissingID
	}
	p := f.Properties

	ev := domain.Event{
		ID:             f.ID,
		SourceCode:     text(p.Code),
		Title:          text(p.Title),
		Time:           ptime.FromMillis(millis(p.Time), loc),
		UpdateTime:     ptime.FromMillis(millis(p.Updated), loc),
		Lon:            f.Geometry.Coord(0),
		Lat:            f.Geometry.Coord(1),
		Depth:          f.Geometry.Coord(2),
		Place:          text(p.Place),
		Magnitude:      p.Mag,
		MagnitudeType:  text(p.MagType),
		NrStations:     p.Nst,
		MaxGap:         p.Gap,
		DistToEpi:      p.Dmin,
		RMSArrivalTime: p.RMS,
		Status:         text(p.Status),
		ReportNet:      text(p.Net),
		URL:            text(p.URL),
	}

	// without an ids list the event only knows itself, which yields nothing
	ids := f.ID
	if p.IDs != nil {
		ids = *p.IDs
	}

	return domain.EventRows{
		Event:         ev,
		Associations:  pstrings.SplitSet(ids, ",", f.ID),
		Contributions: pstrings.SplitSet(pstrings.Deref(p.Sources), ","),
	}, nil
}

func millis(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// text returns the NFC form of *p, nil when p is nil or blank
func text(p *string) *string {
	if pstrings.SQLNullPtr(p) == nil {
		return nil
	}
	s := pstrings.NFC(*p)
	return &s
}
