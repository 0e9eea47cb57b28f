// Package domain holds the backfill types and ports
package domain

import (
	"time"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/core/window"
	perr "quakeingest/internal/platform/errors"
)

type (
	// Feature is one decoded event of a response
	Feature = fdsn.Feature

	// Batch is what the reader yields per response line
	Batch = fdsn.Batch

	// Window is one sub-range of a run
	Window = window.Window
)

// ErrMissingID marks a feature that carries no identifier; it is skipped, not stored
var ErrMissingID = perr.New(perr.ErrorCodeInvalidArgument, "feature has no id")

// Event is one row of the event table. Nil pointers persist as NULL
type Event struct {
	ID             string
	SourceCode     *string
	Title          *string
	Time           time.Time
	UpdateTime     time.Time
	Lat            *float64
	Lon            *float64
	Place          *string
	Depth          *float64
	Magnitude      *float64
	MagnitudeType  *string
	NrStations     *int
	MaxGap         *float64
	DistToEpi      *float64
	RMSArrivalTime *float64
	Status         *string
	ReportNet      *string
	URL            *string
}

// EventRows is everything one feature writes
type EventRows struct {
	Event         Event
	Associations  []string // ids of other events the same quake is known as
	Contributions []string // network names that reported the event
}

// Outcome classifies what happened to one feature
type Outcome string

// Feature outcomes, also used as metric labels
const (
	OutcomeIngested  Outcome = "ingested"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped" // no id
	OutcomeFailed    Outcome = "failed"  // a write was rejected
)

// WindowStatus classifies a whole window
type WindowStatus string

// Window statuses
const (
	WindowOK      WindowStatus = "ok"
	WindowSkipped WindowStatus = "skipped" // upstream answered non-200
	WindowFailed  WindowStatus = "failed"  // read or commit failed, nothing kept
)

// WindowSummary counts what one window did
type WindowSummary struct {
	Window     Window
	Status     WindowStatus
	Rows       int // features seen
	Ingested   int
	Duplicates int
	Skipped    int
	Failed     int
	Dropped    int // undecodable lines
	Elapsed    time.Duration
}

// Count records one feature outcome
func (s *WindowSummary) Count(o Outcome) {
	switch o {
	case OutcomeIngested:
		s.Ingested++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Discard moves everything counted as ingested to failed, for a window whose
// transaction did not commit
func (s *WindowSummary) Discard() {
	s.Failed += s.Ingested
	s.Ingested = 0
}

// RunSummary folds the window summaries of a run
type RunSummary struct {
	RunID          string
	Windows        int
	WindowsSkipped int
	WindowsFailed  int
	Rows           int
	Ingested       int
	Duplicates     int
	Skipped        int
	Failed         int
	Dropped        int
	Elapsed        time.Duration
}

// Add folds w into s
func (s *RunSummary) Add(w WindowSummary) {
	s.Windows++
	switch w.Status {
	case WindowSkipped:
		s.WindowsSkipped++
	case WindowFailed:
		s.WindowsFailed++
	}
	s.Rows += w.Rows
	s.Ingested += w.Ingested
	s.Duplicates += w.Duplicates
	s.Skipped += w.Skipped
	s.Failed += w.Failed
	s.Dropped += w.Dropped
}
