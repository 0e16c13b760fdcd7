// pkg/engine/errors.go
package engine

import "errors"

// Control errors. Mission failures are not errors: they are recorded as
// state and reported through Telemetry.
var (
	ErrMissionOver      = errors.New("mission is over; reset to continue")
	ErrUnknownSubsystem = errors.New("unknown subsystem")
	ErrUnknownStrength  = errors.New("unknown burn strength")
	ErrSubsystemOffline = errors.New("attitude control is offline")
	ErrBurnInProgress   = errors.New("burn in progress")
	ErrInsufficientFuel = errors.New("insufficient fuel for this burn strength")
	ErrNotSupported     = errors.New("action not supported by this mission")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrUnknownAction    = errors.New("unknown action")
)
