package workflow

import "fmt"

// transitions is the full lifecycle: pending is the only non-terminal state,
// and each trigger fires exactly once.
var transitions = map[State]map[Trigger]State{
	StatePending: {
		TriggerVerify: StateVerified,
		TriggerReject: StateRejected,
	},
}

// Machine tracks a bill's current state and validates transitions
type Machine struct {
	current State
}

// NewMachine creates a machine positioned at the given state
func NewMachine(initial State) (*Machine, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, initial)
	}
	return &Machine{current: initial}, nil
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state
func (m *Machine) CanFire(trigger Trigger) bool {
	_, ok := transitions[m.current][trigger]
	return ok
}

// Fire executes the trigger, transitioning to the new state if allowed
func (m *Machine) Fire(trigger Trigger) (State, error) {
	next, ok := transitions[m.current][trigger]
	if !ok {
		return m.current, fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = next
	return next, nil
}

// PermittedTriggers returns all triggers that can be fired in the current state
func (m *Machine) PermittedTriggers() []Trigger {
	permitted := make([]Trigger, 0, len(transitions[m.current]))
	for trigger := range transitions[m.current] {
		permitted = append(permitted, trigger)
	}
	return permitted
}
