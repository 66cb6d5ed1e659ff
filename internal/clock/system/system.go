// Package system provides the wall clock used to stamp records.
package system

import "time"

// Clock implements crawler.Clock. Times are UTC and truncated to the
// microsecond, the finest precision both record stores keep, so a stamped
// record compares equal after a round trip.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
