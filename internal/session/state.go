package session

// State is the orchestrator's position in the session lifecycle.
//
// Transitions: Planning -> (Splitting) -> Processing -> [Waiting <->
// Processing]* -> Assembling -> Completed, with Cancelled and Failed
// reachable from any non-terminal state.
type State int

const (
	StatePlanning State = iota
	StateSplitting
	StateProcessing
	StateWaiting
	StateAssembling
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateSplitting:
		return "splitting"
	case StateProcessing:
		return "processing"
	case StateWaiting:
		return "waiting"
	case StateAssembling:
		return "assembling"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}
