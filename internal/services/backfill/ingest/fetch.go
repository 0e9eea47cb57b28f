package ingest

import (
	"time"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/services/backfill/domain"
)

// NewFetcher returns the USGS fetcher for endpoint.
// window.Window and domain.Window are the same type, so fdsn.HTTPFetcher
// satisfies the port directly
func NewFetcher(endpoint string, timeout time.Duration) domain.Fetcher {
	return fdsn.NewHTTPFetcher(endpoint, timeout)
}
