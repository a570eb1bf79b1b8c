// Package clock abstracts wall time so staleness and applied-at semantics
// are testable.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant, used by tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
