// Package window splits a date range into bounded, contiguous sub-ranges.
// The upstream event service caps how many events one query may return, so
// long ranges are walked one window at a time
package window

import (
	"iter"
	"time"
)

// MaxSize is the largest window the upstream accepts comfortably
const MaxSize = 7 * 24 * time.Hour

// Window is the half-open interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Label renders the window as "2017-01-01..2017-01-08" for logs
func (w Window) Label() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

// Duration is End - Start
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// Split lazily yields contiguous windows of at most size covering [start, end).
// The last window is clipped to end. size outside (0, MaxSize] is clamped to
// MaxSize. Nothing is yielded when end is not after start.
// The sequence is stateless, so ranging over it again starts from the beginning
func Split(start, end time.Time, size time.Duration) iter.Seq[Window] {
	if size <= 0 || size > MaxSize {
		size = MaxSize
	}
	return func(yield func(Window) bool) {
		for cur := start; cur.Before(end); {
			next := cur.Add(size)
			if next.After(end) {
				next = end
			}
			if !yield(Window{Start: cur, End: next}) {
				return
			}
			cur = next
		}
	}
}

// Count reports how many windows Split would yield
func Count(start, end time.Time, size time.Duration) int {
	n := 0
	for range Split(start, end, size) {
		n++
	}
	return n
}
