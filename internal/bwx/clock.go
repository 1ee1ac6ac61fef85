package bwx

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the time for arming clears and waiting out their delay.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has elapsed on this clock.
	After(d time.Duration) <-chan time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// IDGenerator names clear units.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs, so a unit id recorded in a lock entry
// never matches another invocation's unit.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
