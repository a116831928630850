package workflow

// State represents a bill state in the verification lifecycle
type State string

const (
	StatePending  State = "pending"
	StateVerified State = "verified"
	StateRejected State = "rejected"
)

var validStates = map[State]bool{
	StatePending:  true,
	StateVerified: true,
	StateRejected: true,
}

var terminalStates = map[State]bool{
	StateVerified: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid bill state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
