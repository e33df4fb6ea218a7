// Package clockx provides an injectable time source so expiry logic can be
// driven deterministically in tests.
package clockx

import (
	"sync"
	"time"
)

const (
	// Day is a calendar day as used by session expiry arithmetic.
	Day = 24 * time.Hour
	// Year is 365 days.
	Year = 365 * Day
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock. Times are returned in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a settable clock for tests. The zero value starts at the zero
// time; use NewManual to start somewhere sensible.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock fixed at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new instant.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set pins the clock at t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// FromNow returns c.Now()+d.
func FromNow(c Clock, d time.Duration) time.Time {
	return c.Now().Add(d)
}

// Ago returns c.Now()-d.
func Ago(c Clock, d time.Duration) time.Time {
	return c.Now().Add(-d)
}
