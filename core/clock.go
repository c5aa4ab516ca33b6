package core

import "time"

// Clock abstracts time for subsystems that make time-based decisions
// (recency scoring, circuit breaker cooldowns, retry windows). Production
// code uses SystemClock; tests supply a fake to fast-forward virtual time
// instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
