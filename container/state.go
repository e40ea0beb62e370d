package container

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is the progress of one launch attempt.
type State int

const (
	Created State = iota
	LimitsApplied
	ProcessSpawnedSuspended
	Bound
	Running
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case LimitsApplied:
		return "limits-applied"
	case ProcessSpawnedSuspended:
		return "spawned-suspended"
	case Bound:
		return "bound"
	case Running:
		return "running"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("unknown (%d)", int(s))
}

// next lists the states reachable from each state. Running and Failed are
// terminal.
var next = map[State][]State{
	Created:                 {LimitsApplied, Failed},
	LimitsApplied:           {ProcessSpawnedSuspended, Failed},
	ProcessSpawnedSuspended: {Bound, Failed},
	Bound:                   {Running, Failed},
}

// Attempt tracks a launch through its states. The only way to Running is
// through Bound.
type Attempt struct {
	state   State
	history []State
	err     error
}

// NewAttempt starts an attempt in the Created state.
func NewAttempt() *Attempt {
	return &Attempt{state: Created, history: []State{Created}}
}

// State returns the current state.
func (a *Attempt) State() State { return a.state }

// History returns every state the attempt has been in, in order.
func (a *Attempt) History() []State {
	out := make([]State, len(a.history))
	copy(out, a.history)
	return out
}

// Err returns the reason of a failed attempt.
func (a *Attempt) Err() error { return a.err }

// Transition moves the attempt to state to.
func (a *Attempt) Transition(to State) error {
	for _, s := range next[a.state] {
		if s == to {
			a.state = to
			a.history = append(a.history, to)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "%s -> %s", a.state, to)
}

// Fail moves the attempt to Failed, recording reason. A terminal attempt
// is left untouched.
func (a *Attempt) Fail(reason error) {
	if a.state == Failed || a.state == Running {
		return
	}
	a.state = Failed
	a.err = reason
	a.history = append(a.history, Failed)
}
