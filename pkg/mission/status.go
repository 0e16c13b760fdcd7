// pkg/mission/status.go
package mission

import (
	"errors"
	"fmt"
)

// Status is the discrete mission state. Exactly one is active at a time.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusAligning      Status = "aligning"
	StatusArmed         Status = "armed"
	StatusBurning       Status = "burning"
	StatusStageComplete Status = "stage_complete"
	StatusOrbitAchieved Status = "orbit_achieved"
	StatusSuccess       Status = "success"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further physics or transitions may occur.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusSuccess || s == StatusOrbitAchieved
}

// Succeeded reports whether the mission ended successfully.
func (s Status) Succeeded() bool {
	return s == StatusSuccess || s == StatusOrbitAchieved
}

// ErrInvalidTransition is returned for a transition the table does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the allowed targets for each non-terminal status.
// Terminal states leave only through Reset.
var transitions = map[Status][]Status{
	StatusIdle:          {StatusAligning, StatusBurning, StatusStageComplete, StatusSuccess, StatusFailed},
	StatusAligning:      {StatusArmed, StatusFailed},
	StatusArmed:         {StatusBurning, StatusFailed},
	StatusBurning:       {StatusIdle, StatusStageComplete, StatusOrbitAchieved, StatusSuccess, StatusFailed},
	StatusStageComplete: {StatusIdle, StatusBurning, StatusStageComplete, StatusSuccess, StatusFailed},
}

// CanTransition reports whether from → to is allowed. Staying put is always
// allowed for non-terminal states.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine owns the mission status and the failure that ended it, if any.
type Machine struct {
	status  Status
	failure *Failure
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{status: StatusIdle}
}

// Status returns the current status.
func (m *Machine) Status() Status {
	return m.status
}

// Failure returns the recorded failure, if the mission failed.
func (m *Machine) Failure() (Failure, bool) {
	if m.failure == nil {
		return Failure{}, false
	}
	return *m.failure, true
}

// Transition moves to the given status.
func (m *Machine) Transition(to Status) error {
	if to == StatusFailed {
		return fmt.Errorf("%w: use Fail to enter %s", ErrInvalidTransition, StatusFailed)
	}
	if !CanTransition(m.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.status, to)
	}
	m.status = to
	return nil
}

// Fail enters the failed state with the given reason.
func (m *Machine) Fail(f Failure) error {
	if !CanTransition(m.status, StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.status, StatusFailed)
	}
	m.status = StatusFailed
	m.failure = &f
	return nil
}

// Reset returns to idle from any state and clears the failure.
func (m *Machine) Reset() {
	m.status = StatusIdle
	m.failure = nil
}
