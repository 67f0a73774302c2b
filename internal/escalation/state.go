package escalation

import "fmt"

// State is a stage in an alert's lifecycle. Alerts only ever move forward.
type State int

const (
	StateReceived State = iota
	StateClassified
	StateEnriched
	StateDispatching
	StateArchived
)

var stateNames = [...]string{"received", "classified", "enriched", "dispatching", "archived"}

func (s State) String() string {
	if s >= StateReceived && s <= StateArchived {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// lifecycle tracks one alert's progress.
type lifecycle struct {
	state State
	trail []State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateReceived, trail: []State{StateReceived}}
}

// advance moves to next, which must be the immediate successor.
func (l *lifecycle) advance(next State) error {
	if next != l.state+1 {
		return fmt.Errorf("invalid transition %s -> %s", l.state, next)
	}
	l.state = next
	l.trail = append(l.trail, next)
	return nil
}
