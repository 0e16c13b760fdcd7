// pkg/engine/controls.go
package engine

import (
	"fmt"
	"math"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/event"
	"github.com/opd-ai/go-orbitsim/pkg/mission"
)

func (s *Simulation) hasSubsystems() bool {
	return s.cfg.Variant == config.VariantApogee
}

func (s *Simulation) require(v config.Variant) error {
	if s.cfg.Variant != v {
		return fmt.Errorf("%w: %s", ErrNotSupported, s.cfg.Variant)
	}
	if s.Status().Terminal() {
		return ErrMissionOver
	}
	return nil
}

// checkInitialized latches orbit initialization once attitude is set.
func (s *Simulation) checkInitialized() {
	if s.initialized || !s.acs {
		return
	}
	if math.Abs(s.alignment) <= s.cfg.Alignment.Tolerance {
		s.initialized = true
		s.say(ToneSuccess, "Attitude set. Orbit initialized.")
	}
}

// ToggleSubsystem flips a subsystem on or off. Turning attitude control off
// during a held burn tumbles the craft.
func (s *Simulation) ToggleSubsystem(name string) error {
	if err := s.require(config.VariantApogee); err != nil {
		return err
	}
	switch name {
	case SubsystemACS:
		s.acs = !s.acs
		if !s.acs && s.burning {
			s.fail(mission.LabelTumbled, "Attitude control disabled during an active burn.")
			return nil
		}
		if s.acs {
			s.say(ToneNeutral, "ACS online.")
		} else {
			s.say(ToneNeutral, "ACS offline.")
		}
		s.checkInitialized()
	case SubsystemTelemetry:
		s.link = !s.link
		if s.link {
			s.say(ToneNeutral, "Telemetry link established.")
		} else {
			s.say(ToneNeutral, "Telemetry link closed.")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSubsystem, name)
	}
	return nil
}

// SetAlignment sets the pitch trim, clamped to the configured range.
func (s *Simulation) SetAlignment(value float64) error {
	if err := s.require(config.VariantApogee); err != nil {
		return err
	}
	if !s.acs {
		return ErrSubsystemOffline
	}
	if s.burning {
		return ErrBurnInProgress
	}
	a := s.cfg.Alignment
	s.alignment = math.Max(a.Min, math.Min(a.Max, value))
	s.checkInitialized()
	return nil
}

// SetArmed arms or disarms the engine.
func (s *Simulation) SetArmed(armed bool) error {
	if err := s.require(config.VariantApogee); err != nil {
		return err
	}
	if s.burning {
		return ErrBurnInProgress
	}
	s.armed = armed
	if armed {
		s.say(ToneNeutral, "Engine armed.")
	} else {
		s.say(ToneNeutral, "Engine safed.")
	}
	return nil
}

// StartAlign begins ramping the injection vector alignment.
func (s *Simulation) StartAlign() error {
	if err := s.require(config.VariantInjection); err != nil {
		return err
	}
	if s.burning {
		return ErrBurnInProgress
	}
	if s.Status() != mission.StatusIdle {
		return nil
	}
	s.aligning = true
	s.setStatus(mission.StatusAligning)
	s.say(ToneNeutral, "Aligning to the transfer vector...")
	return nil
}

// StartBurn begins a held burn. Guidance gates may refuse it silently, raise
// a transient lockout, or fail the mission outright.
func (s *Simulation) StartBurn() error {
	if s.cfg.Variant == config.VariantLadder {
		return fmt.Errorf("%w: use fire", ErrNotSupported)
	}
	if s.Status().Terminal() {
		return ErrMissionOver
	}
	if s.burning {
		return nil
	}

	if s.cfg.Variant == config.VariantInjection {
		if s.alignment < s.cfg.Alignment.Full {
			s.fail(mission.LabelAlignmentError, "Navigation computer not locked on the transfer vector.")
			return nil
		}
		s.aligning = false
		s.burning = true
		s.setStatus(mission.StatusBurning)
		s.publishBurn(event.BurnStarted, "", 0)
		s.say(ToneNeutral, "Injection burn in progress.")
		return nil
	}

	if !s.acs {
		s.fail(mission.LabelTumbled, "Ignition attempted with attitude control offline.")
		return nil
	}
	if !s.armed {
		s.say(ToneError, "Arm the engine first.")
		return nil
	}
	if math.Abs(s.alignment) > s.cfg.Alignment.Tolerance {
		s.lockout = s.cfg.Alignment.LockoutTicks
		s.EventBus.Publish(event.NewStageEvent(event.AlignmentLocked, s, s.cfg.Name,
			s.stages.Index(), s.stages.Active().Label, s.alignment))
		s.say(ToneError, "REALIGN PITCH! Ignition locked out.")
		return nil
	}

	s.burning = true
	s.publishBurn(event.BurnStarted, "", 0)
	s.say(ToneNeutral, "Ignition. Hold at perigee.")
	return nil
}

// StopBurn releases a held burn. Injection burns are validated immediately;
// apogee burns are validated on the next tick.
func (s *Simulation) StopBurn() error {
	if s.cfg.Variant == config.VariantLadder {
		return fmt.Errorf("%w: use fire", ErrNotSupported)
	}
	if !s.burning {
		return nil
	}
	s.burning = false
	s.publishBurn(event.BurnStopped, "", 0)

	if s.cfg.Variant != config.VariantInjection {
		return nil
	}
	v := mission.ValidateInjection(s.band, s.metric, s.inWindow)
	if v.Outcome == mission.OutcomeSuccess {
		s.succeed(mission.StatusSuccess, fmt.Sprintf("Injection complete at %.2f km/s. On course.", s.metric))
		return nil
	}
	s.fail(v.Failure.Label, v.Failure.Cause)
	return nil
}

// SelectStrength chooses the discrete burn option used by Fire.
func (s *Simulation) SelectStrength(key string) error {
	if err := s.require(config.VariantLadder); err != nil {
		return err
	}
	opt, ok := s.discrete.Option(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStrength, key)
	}
	s.strength = opt.Key
	return nil
}

// Fire performs one discrete burn with the selected strength.
func (s *Simulation) Fire() error {
	if err := s.require(config.VariantLadder); err != nil {
		return err
	}
	if s.ledger.IsDepleted() {
		s.failFuel()
		return nil
	}
	opt, ok := s.discrete.Option(s.strength)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStrength, s.strength)
	}

	if !s.inWindow {
		s.snapshot()
		cost := s.discrete.Cost(opt, false)
		s.ledger.Debit(cost)
		s.publishBurn(event.BurnFired, opt.Key, cost)
		s.setStatus(mission.StatusIdle)
		s.say(ToneError, "Burn wasted! You fired too early or too late. Only fire inside the perigee window.")
		return nil
	}

	if !s.ledger.CanAfford(opt.FuelCost) {
		s.say(ToneError, "Insufficient fuel for this burn strength!")
		return ErrInsufficientFuel
	}

	s.snapshot()
	s.ledger.Debit(opt.FuelCost)
	s.metric += opt.Gain
	s.publishBurn(event.BurnFired, opt.Key, opt.FuelCost)

	v := mission.ValidateLadder(s.stages, s.metric, s.cfg.Ceiling)
	switch v.Outcome {
	case mission.OutcomeFailed:
		s.fail(v.Failure.Label, v.Failure.Cause)
	case mission.OutcomeSuccess:
		s.stages.SetIndex(v.StageIndex)
		s.succeed(mission.StatusSuccess, "MISSION SUCCESS! Orbit matches injection requirements.")
	case mission.OutcomeStageComplete:
		s.stages.SetIndex(v.StageIndex)
		s.setStatus(mission.StatusStageComplete)
		s.EventBus.Publish(event.NewStageEvent(event.StageAdvanced, s, s.cfg.Name,
			v.StageIndex, s.stages.Active().Label, s.metric))
		s.say(ToneSuccess, fmt.Sprintf("Great job! Orbit raised. Next target: %.0fk km.", s.stages.Active().Target/1000))
	default:
		s.setStatus(mission.StatusIdle)
		s.say(ToneNeutral, "Orbit raised! But we need to go higher. Wait for another pass.")
	}
	return nil
}

func (s *Simulation) snapshot() {
	s.history.Record(mission.Snapshot{
		StageIndex: s.stages.Index(),
		Metric:     s.metric,
		Fuel:       s.ledger.Fuel(),
	})
}

// WarpToPerigee fast-forwards the orbit until the craft is at perigee.
func (s *Simulation) WarpToPerigee() error {
	if err := s.require(config.VariantLadder); err != nil {
		return err
	}
	if s.inWindow {
		s.say(ToneNeutral, "You are already at perigee!")
		return nil
	}
	s.warping = true
	s.say(ToneNeutral, "Warping to perigee...")
	return nil
}

// Undo restores the state captured before the last discrete burn. The
// snapshot is consumed, so a second Undo returns ErrNothingToUndo.
func (s *Simulation) Undo() error {
	if err := s.require(config.VariantLadder); err != nil {
		return err
	}
	snap, ok := s.history.Take()
	if !ok {
		return ErrNothingToUndo
	}
	s.stages.SetIndex(snap.StageIndex)
	s.metric = snap.Metric
	s.ledger.Set(snap.Fuel)
	s.setStatus(mission.StatusIdle)
	s.EventBus.Publish(event.NewStageEvent(event.BurnUndone, s, s.cfg.Name,
		snap.StageIndex, s.stages.Active().Label, snap.Metric))
	s.say(ToneNeutral, "Last burn undone. Try again!")
	return nil
}

// Reset restores the level-start state. It is always available.
func (s *Simulation) Reset() {
	s.reset()
	s.EventBus.Publish(event.NewStageEvent(event.MissionReset, s, s.cfg.Name,
		0, s.stages.Active().Label, s.metric))
	s.say(ToneNeutral, "Simulation reset. Ready for liftoff.")
}

func (s *Simulation) publishBurn(t event.Type, strength string, cost float64) {
	s.EventBus.Publish(event.NewBurnEvent(t, s, s.cfg.Name, strength, s.inWindow, cost, s.ledger.Fuel()))
}
