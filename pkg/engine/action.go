// pkg/engine/action.go
package engine

import "fmt"

// ActionKind names an inbound control action.
type ActionKind string

const (
	ActionToggleSubsystem ActionKind = "toggle_subsystem"
	ActionSetAlignment    ActionKind = "set_alignment"
	ActionSetArmed        ActionKind = "set_armed"
	ActionStartAlign      ActionKind = "start_align"
	ActionStartBurn       ActionKind = "start_burn"
	ActionStopBurn        ActionKind = "stop_burn"
	ActionSelectStrength  ActionKind = "select_strength"
	ActionFire            ActionKind = "fire"
	ActionWarp            ActionKind = "warp"
	ActionUndo            ActionKind = "undo"
	ActionReset           ActionKind = "reset"
)

// ActionKinds lists every supported action.
var ActionKinds = []ActionKind{
	ActionToggleSubsystem, ActionSetAlignment, ActionSetArmed, ActionStartAlign,
	ActionStartBurn, ActionStopBurn, ActionSelectStrength, ActionFire,
	ActionWarp, ActionUndo, ActionReset,
}

// Action is a serializable control request. Only the fields relevant to
// Kind are read.
type Action struct {
	Kind      ActionKind `json:"action"`
	Subsystem string     `json:"subsystem,omitempty"`
	Value     float64    `json:"value,omitempty"`
	Armed     bool       `json:"armed,omitempty"`
	Strength  string     `json:"strength,omitempty"`
}

// Apply dispatches an action to the matching control method.
func (s *Simulation) Apply(a Action) error {
	switch a.Kind {
	case ActionToggleSubsystem:
		return s.ToggleSubsystem(a.Subsystem)
	case ActionSetAlignment:
		return s.SetAlignment(a.Value)
	case ActionSetArmed:
		return s.SetArmed(a.Armed)
	case ActionStartAlign:
		return s.StartAlign()
	case ActionStartBurn:
		return s.StartBurn()
	case ActionStopBurn:
		return s.StopBurn()
	case ActionSelectStrength:
		return s.SelectStrength(a.Strength)
	case ActionFire:
		return s.Fire()
	case ActionWarp:
		return s.WarpToPerigee()
	case ActionUndo:
		return s.Undo()
	case ActionReset:
		s.Reset()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}
