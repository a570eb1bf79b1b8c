// Package status holds the pure application-lifecycle transition policy.
package status

import (
	stderrors "jobtrack/internal/common/errors"
	"jobtrack/internal/models"
)

// Machine decides whether a status transition is permitted. It never mutates
// state; callers own persistence and side effects.
type Machine struct {
	terminal    map[models.Status]bool
	transitions map[models.Status][]models.Status
}

// Option customizes the transition policy.
type Option func(*Machine)

// WithTransitions replaces the allowed-transitions table. Useful if product
// ever decides to enforce strict forward progression.
func WithTransitions(table map[models.Status][]models.Status) Option {
	return func(m *Machine) {
		m.transitions = table
	}
}

// New builds the default machine: hired and rejected are terminal, and any
// non-terminal status may move to any other status. The business rule does
// not enforce forward-only ordering.
func New(opts ...Option) *Machine {
	m := &Machine{
		terminal: map[models.Status]bool{
			models.StatusHired:    true,
			models.StatusRejected: true,
		},
	}

	m.transitions = make(map[models.Status][]models.Status)
	for _, from := range models.AllStatuses {
		if m.terminal[from] {
			continue
		}
		for _, to := range models.AllStatuses {
			if to == from {
				continue
			}
			m.transitions[from] = append(m.transitions[from], to)
		}
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// IsTerminal reports whether s permits no further transitions.
func (m *Machine) IsTerminal(s models.Status) bool {
	return m.terminal[s]
}

// CanTransition validates a requested transition.
//
// A terminal current status rejects every request, including a same-status
// one: final status cannot be touched. A same-status request on a
// non-terminal application is an idempotent no-op and succeeds.
func (m *Machine) CanTransition(current, requested models.Status) error {
	if !requested.Valid() {
		return stderrors.NewTransitionRejectedError(string(current), string(requested))
	}

	if m.terminal[current] {
		return stderrors.NewFinalStatusError(string(current))
	}

	if requested == current {
		return nil
	}

	for _, allowed := range m.transitions[current] {
		if allowed == requested {
			return nil
		}
	}

	return stderrors.NewTransitionRejectedError(string(current), string(requested))
}

// IsNoOp reports whether the request would change nothing: same status on a
// non-terminal application. Callers skip persistence and emission for no-ops.
func (m *Machine) IsNoOp(current, requested models.Status) bool {
	return current == requested && !m.terminal[current]
}
