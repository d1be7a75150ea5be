// Package machine is a small declarative state machine used to guard the
// lifecycle of a sidecar file as it moves through the pipeline.
package machine

import "errors"

var ErrInvalidTransition = errors.New("invalid state transition")

type State interface {
	~string
}

// Allowable maps where a from state is allowed to transition to
type Allowable[S State] struct {
	from S
	to   []S
}

// TransitionBuilder helps in creating a from-to relationship for state transitions
type TransitionBuilder[S State] struct {
	transition Allowable[S]
}

// From initializes a transition from a specific state
func From[S State](from S) *TransitionBuilder[S] {
	return &TransitionBuilder[S]{transition: Allowable[S]{from: from}}
}

// To sets the possible destination states and returns the configured transition
func (tb *TransitionBuilder[S]) To(to ...S) Allowable[S] {
	tb.transition.to = to
	return tb.transition
}

// StateMachine tracks a current state against a set of allowed transitions.
type StateMachine[S State] struct {
	current     S
	transitions []Allowable[S]
}

func New[S State](initial S, transitions ...Allowable[S]) *StateMachine[S] {
	return &StateMachine[S]{current: initial, transitions: transitions}
}

// Current returns the state the machine is in.
func (m *StateMachine[S]) Current() S {
	return m.current
}

// CanTransition reports whether moving to s is allowed from the current state.
func (m *StateMachine[S]) CanTransition(s S) bool {
	for _, t := range m.transitions {
		if t.from != m.current {
			continue
		}
		for _, to := range t.to {
			if to == s {
				return true
			}
		}
	}
	return false
}

// Transition moves the machine to s when the transition is allowed.
func (m *StateMachine[S]) Transition(s S) error {
	if !m.CanTransition(s) {
		return ErrInvalidTransition
	}
	m.current = s
	return nil
}
