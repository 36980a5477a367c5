// Package window computes the calendar periods that usage policies are evaluated over.
//
// All boundaries are taken from the location of the reference instant, so a
// caller controls the calendar by converting "now" before calling Compute.
package window

import (
	"errors"
	"strings"
	"time"
)

// Kind names a calendar period granularity.
type Kind string

const (
	Hourly  Kind = "hourly"
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
)

// ErrUnsupportedWindow is returned for any kind outside the supported set.
var ErrUnsupportedWindow = errors.New("unsupported time window")

// Kinds lists every supported kind, shortest first.
var Kinds = []Kind{Hourly, Daily, Weekly, Monthly}

// Window is the half-open interval [Start, End).
type Window struct {
	Kind  Kind
	Start time.Time
	End   time.Time
}

// ParseKind accepts a stored window name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrUnsupportedWindow
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case Hourly, Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Title returns the capitalized name, e.g. "Daily".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func (k Kind) String() string {
	return string(k)
}

// Compute returns the period of the given kind that contains now.
func Compute(kind Kind, now time.Time) (Window, error) {
	loc := now.Location()
	y, m, d := now.Date()

	var start, end time.Time
	switch kind {
	case Hourly:
		// time.Truncate works on absolute time and drifts for zones with
		// non-hour offsets, so build the boundary from calendar fields.
		start = time.Date(y, m, d, now.Hour(), 0, 0, 0, loc)
		end = start.Add(time.Hour)
	case Daily:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = start.Add(24 * time.Hour)
	case Weekly:
		// Weeks start on Sunday; time.Date normalizes a negative day into the previous month.
		start = time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
		end = start.Add(7 * 24 * time.Hour)
	case Monthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		return Window{}, ErrUnsupportedWindow
	}

	return Window{Kind: kind, Start: start, End: end}, nil
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
