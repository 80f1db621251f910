package migrate

import "fmt"

// State is a stage of a pipeline run.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateProjecting
	StateResolving
	StateTransforming
	StateUpserting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateScanning:     "scanning",
	StateProjecting:   "projecting",
	StateResolving:    "resolving",
	StateTransforming: "transforming",
	StateUpserting:    "upserting",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
