// Package time holds the wall clock helpers shared by ingestion and logging
package time

import "time"

// Layout is the wall clock format used in log lines
const Layout = time.DateTime

// FromMillis converts a Unix epoch in milliseconds to a wall clock in loc.
// A nil loc means time.Local
func FromMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc)
}
