package entities

// State is the lifecycle state of a transfer session.
type State int

const (
	// StateUninitialised is the state of a session that was never initialised.
	StateUninitialised State = iota
	// StateReady is the state after init or reset.
	StateReady
	// StatePerformed is the state after a successful perform.
	StatePerformed
	// StateClosed is the state after cleanup.
	StateClosed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateReady:
		return "ready"
	case StatePerformed:
		return "performed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Active reports whether a session in this state accepts operations other than init.
func (s State) Active() bool {
	return s == StateReady || s == StatePerformed
}
