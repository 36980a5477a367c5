package service

import "time"

// Clock supplies "now" to the services
type Clock func() time.Time

func SystemClock() Clock {
	return time.Now
}

// FixedClock always returns t. Used to pin evaluation time in end-to-end runs.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
