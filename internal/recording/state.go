package recording

// State is the lifecycle state of a recording Session.
//
//	Idle --Start--> Recording --Pause--> Paused
//	                Recording <-Resume-- Paused
//	Recording|Paused --Stop--> Idle
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether an encoder is attached in this state.
func (s State) Active() bool {
	return s == StateRecording || s == StatePaused
}
