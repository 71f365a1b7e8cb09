package server

import (
	"fmt"
	"sync"
)

// State is a lifecycle phase of the service runner.
type State string

const (
	StateStarting State = "starting"
	StateServing  State = "serving"
	StateDraining State = "draining"
	StateStopped  State = "stopped"
)

// validTransitions encodes the only legal state machine path:
// starting -> serving -> draining -> stopped. A startup failure may also go
// straight from starting to stopped.
var validTransitions = map[State][]State{
	StateStarting: {StateServing, StateStopped},
	StateServing:  {StateDraining},
	StateDraining: {StateStopped},
	StateStopped:  {},
}

// lifecycle tracks the runner state with guarded transitions so graceful
// shutdown is testable in isolation from request handling.
type lifecycle struct {
	mu    sync.RWMutex
	state State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateStarting}
}

// Current returns the current state.
func (l *lifecycle) Current() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Transition moves to the target state, rejecting illegal transitions.
func (l *lifecycle) Transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, allowed := range validTransitions[l.state] {
		if allowed == to {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal lifecycle transition: %s -> %s", l.state, to)
}
