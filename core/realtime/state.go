package realtime

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRunning
	StateFinishing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StateFinishing:
		return "finishing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateDisconnected},
	StateConnected:    {StateRunning, StateDisconnected},
	StateRunning:      {StateFinishing, StateClosed, StateDisconnected},
	StateFinishing:    {StateClosed, StateDisconnected},
	StateClosed:       {StateDisconnected},
}

// CanTransition reports whether a session may move from one state to the
// other. Failures before a session is running return it to disconnected,
// failures of a running session close it, and a disconnect is legal from
// anywhere.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
