// Package repo provides postgres access for backfill writes
package repo

import (
	"context"

	"quakeingest/internal/modkit/repokit"
	"quakeingest/internal/services/backfill/domain"

	perr "quakeingest/internal/platform/errors"
	"quakeingest/internal/platform/store"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

const insertEventSQL = `
	INSERT INTO event (
		id, source_code, title, timestamp, update_time,
		lat, lon, place_description, depth, magnitude, magnitude_type,
		nr_stations, max_gap, dist_to_epi, rms_arrival_time,
		status, report_net, url
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15,
		$16, $17, $18
	)
	ON CONFLICT (id) DO NOTHING
`

// InsertEvent stores one event row; inserted is false when the id is already present.
// The timestamp columns carry no zone, pgx writes the wall clock of e.Time
func (r *queries) InsertEvent(ctx context.Context, e domain.Event) (bool, error) {
	n, err := store.Exec(ctx, r.q, insertEventSQL,
		e.ID, e.SourceCode, e.Title, e.Time, e.UpdateTime,
		e.Lat, e.Lon, e.Place, e.Depth, e.Magnitude, e.MagnitudeType,
		e.NrStations, e.MaxGap, e.DistToEpi, e.RMSArrivalTime,
		e.Status, e.ReportNet, e.URL,
	)
	if err != nil {
		return false, perr.FromPostgresWithField(err, "insert event "+e.ID)
	}
	return n > 0, nil
}

// InsertAssociations stores one associated_events row per target
func (r *queries) InsertAssociations(ctx context.Context, sourceID string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO associated_events (source_id, target_id)
		SELECT $1, t FROM UNNEST($2::text[]) AS t
	`, sourceID, targets)
	if err != nil {
		return perr.FromPostgresWithField(err, "insert associations of "+sourceID)
	}
	return nil
}

// InsertContributions stores one contributed row per network name
func (r *queries) InsertContributions(ctx context.Context, eventID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO contributed (event_id, contributor_name)
		SELECT $1, n FROM UNNEST($2::text[]) AS n
	`, eventID, names)
	if err != nil {
		return perr.FromPostgresWithField(err, "insert contributions of "+eventID)
	}
	return nil
}
