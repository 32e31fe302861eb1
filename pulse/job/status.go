// Package job defines the lifecycle core shared by every longrun job variant:
// the lifecycle Status, the Interval a job's progress is derived from, the
// capability interface variants implement, and the durable Record format.
package job

import (
	"time"
)

// Status represents the lifecycle state of a job
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusError     Status = "error"
)

// IsValidStatus returns true if the status string is a valid Status
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusIdle, StatusPending, StatusStarted, StatusSucceeded, StatusError:
		return true
	default:
		return false
	}
}

// InFlight reports whether work for a job in this status may still be ongoing.
// Teardown of a job set is refused while any of its jobs is in flight.
func (s Status) InFlight() bool {
	return s == StatusIdle || s == StatusPending || s == StatusStarted
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusError
}

// Interval is the start/end/duration triple a timed job's progress is derived from.
// All values are epoch seconds. Start and End are both zero until the job starts.
type Interval struct {
	Start    int64
	End      int64
	Duration int64
}

// Started reports whether the interval has been stamped.
func (iv Interval) Started() bool {
	return iv.Start != 0 || iv.End != 0
}

// Stamp returns the interval started at now with End = Start + Duration.
func (iv Interval) Stamp(now time.Time) Interval {
	iv.Start = now.Unix()
	iv.End = iv.Start + iv.Duration
	return iv
}

// DeriveStatus computes a job's lifecycle status from its interval and the wall clock.
//
// This is the single source of truth for progress; stored statuses are caches.
// A clock that reads earlier than the recorded start is reported as StatusError.
// There is no other failure outcome.
func DeriveStatus(iv Interval, now time.Time) Status {
	if !iv.Started() {
		return StatusIdle
	}

	t := now.Unix()
	switch {
	case t < iv.Start:
		return StatusError
	case t <= iv.End:
		return StatusStarted
	default:
		return StatusSucceeded
	}
}

// Clock returns the current wall-clock time.
type Clock func() time.Time

// SystemClock reads time.Now.
func SystemClock() time.Time {
	return time.Now()
}
