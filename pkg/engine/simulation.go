// pkg/engine/simulation.go
package engine

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/event"
	"github.com/opd-ai/go-orbitsim/pkg/ledger"
	"github.com/opd-ai/go-orbitsim/pkg/mission"
	"github.com/opd-ai/go-orbitsim/pkg/orbit"
)

// Subsystem names for missions that carry attitude control.
const (
	SubsystemACS       = "acs"
	SubsystemTelemetry = "telemetry"
)

// Simulation is one mission run: the spacecraft state, the mission status
// and the per-tick pipeline that advances them. A Simulation is not safe
// for concurrent use; its owner must serialize Tick and the control methods.
type Simulation struct {
	cfg        config.MissionConfig
	integrator orbit.Integrator
	continuous ledger.ContinuousModel
	discrete   ledger.DiscreteModel
	band       mission.Band
	EventBus   *event.Bus

	ledger  *ledger.Ledger
	stages  *mission.Ladder
	machine *mission.Machine
	history mission.History
	rng     *rand.Rand

	tick            uint64
	anomaly         float64
	metric          float64 // apogee in km, or velocity in km/s for injection
	deltaV          float64
	displayVelocity float64
	alignment       float64
	inWindow        bool

	burning     bool // hold flag: set by StartBurn, cleared by StopBurn or failure
	armed       bool
	aligning    bool
	warping     bool
	initialized bool
	lockout     int
	acs         bool
	link        bool
	strength    string
	message     Message
}

// NewSimulation creates a simulation for the given mission. If bus is nil
// the simulation gets a private bus.
func NewSimulation(cfg config.MissionConfig, bus *event.Bus) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mission: %w", err)
	}
	if bus == nil {
		bus = event.NewEventBus()
	}

	s := &Simulation{
		cfg:        cfg,
		integrator: orbit.NewIntegrator(orbitParams(cfg.Orbit), orbit.Window{HalfWidth: cfg.Window.HalfWidth}),
		continuous: continuousModel(cfg.Burn),
		discrete:   discreteModel(cfg.Burn),
		band:       mission.Band{Min: cfg.Band.Min, Max: cfg.Band.Max},
		EventBus:   bus,
		ledger:     ledger.New(cfg.Start.Fuel),
		stages:     mission.NewLadder(stages(cfg.Stages)),
		machine:    mission.NewMachine(),
	}
	s.reset()
	s.message = welcomeMessage(cfg.Variant)
	return s, nil
}

func orbitParams(c config.OrbitConfig) orbit.Params {
	return orbit.Params{
		BaseSpeed:     c.BaseSpeed,
		Kepler:        c.Kepler,
		SizeRef:       c.SizeRef,
		SizeOffset:    c.SizeOffset,
		MinSizeFactor: c.MinSizeFactor,
		BoostAbove:    c.BoostAbove,
		BoostFactor:   c.BoostFactor,
		WarpSpeed:     c.WarpSpeed,
		WarpCapture:   c.WarpCapture,
		Fluctuation:   c.Fluctuation,
	}
}

func continuousModel(c config.BurnConfig) ledger.ContinuousModel {
	return ledger.ContinuousModel{
		FuelRate:            c.FuelRate,
		OffWindowFuel:       c.OffWindowFuel,
		MetricRate:          c.MetricRate,
		DeltaVRate:          c.DeltaVRate,
		OffWindowEfficiency: c.OffWindowEfficiency,
	}
}

func discreteModel(c config.BurnConfig) ledger.DiscreteModel {
	m := ledger.DiscreteModel{MistimedFraction: c.MistimedFraction}
	for _, o := range c.Options {
		m.Options = append(m.Options, ledger.Option{
			Key:         o.Key,
			Label:       o.Label,
			Description: o.Description,
			Gain:        o.Gain,
			FuelCost:    o.FuelCost,
		})
	}
	return m
}

func stages(cs []config.StageConfig) []mission.Stage {
	out := make([]mission.Stage, len(cs))
	for i, c := range cs {
		out[i] = mission.Stage{Label: c.Label, Target: c.Target, Tolerance: c.Tolerance}
	}
	return out
}

// newSource returns the pseudo-random source used for alignment drift.
func newSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// reset reinitializes every field to its level-start value.
func (s *Simulation) reset() {
	start := s.cfg.Start
	s.rng = newSource(s.cfg.Seed)
	s.ledger.Set(start.Fuel)
	s.stages.SetIndex(0)
	s.machine.Reset()
	s.history.Clear()

	s.tick = 0
	s.anomaly = orbit.Wrap(start.Anomaly)
	s.metric = start.Apogee
	if s.cfg.Variant == config.VariantInjection {
		s.metric = start.Velocity
	}
	s.deltaV = 0
	s.alignment = start.Alignment
	s.displayVelocity = s.integrator.Params.DisplayVelocity(s.anomaly, start.BaseVelocity, 0)
	s.inWindow = s.integrator.Window.Contains(s.anomaly)

	s.burning = false
	s.armed = false
	s.aligning = false
	s.warping = false
	s.initialized = !s.cfg.Orbit.FreezeUntilAligned
	s.lockout = 0
	s.acs = false
	s.link = false
	s.strength = s.cfg.Burn.DefaultOption
	s.message = Message{}
}

// Tick runs one step of the pipeline: integrate the orbit, recompute the
// window, charge and credit an active burn, then validate. Terminal
// missions are not advanced.
func (s *Simulation) Tick() {
	if s.Status().Terminal() {
		return
	}
	s.tick++
	if s.lockout > 0 {
		s.lockout--
	}

	switch s.cfg.Variant {
	case config.VariantApogee:
		s.tickApogee(s.burning)
	case config.VariantLadder:
		s.tickLadder(s.warping)
	case config.VariantInjection:
		s.tickInjection(s.burning)
	}
}

// advance integrates one tick and updates the window flag.
func (s *Simulation) advance(warping bool) orbit.Step {
	wasInWindow := s.inWindow
	step := s.integrator.Advance(s.anomaly, s.sizeMetric(), warping)
	s.displayVelocity = s.integrator.Params.DisplayVelocity(s.anomaly, s.cfg.Start.BaseVelocity, s.deltaV)
	s.anomaly = step.Anomaly
	s.inWindow = step.InWindow
	if s.inWindow && !wasInWindow {
		s.EventBus.Publish(event.NewStageEvent(event.PerigeeReached, s, s.cfg.Name,
			s.stages.Index(), s.stages.Active().Label, s.metric))
	}
	return step
}

// sizeMetric is the orbit size used for angular-speed damping.
func (s *Simulation) sizeMetric() float64 {
	if s.cfg.Variant == config.VariantInjection {
		return 0
	}
	return s.metric
}

func (s *Simulation) tickApogee(held bool) {
	if !s.initialized {
		return
	}
	s.advance(false)

	if !held {
		if s.Status() == mission.StatusBurning {
			s.validateApogee()
		}
		return
	}

	if !s.burnTick() {
		return
	}
	if s.inWindow {
		st := s.Status()
		if st == mission.StatusIdle || st == mission.StatusStageComplete {
			s.setStatus(mission.StatusBurning)
		}
	}
}

func (s *Simulation) tickLadder(warping bool) {
	step := s.advance(warping)
	if step.Captured {
		s.warping = false
		s.say(ToneSuccess, "Perigee reached! The spacecraft is closest to Earth. Fire engines now!")
	}
}

func (s *Simulation) tickInjection(held bool) {
	s.advance(false)

	full := s.cfg.Alignment.Full
	if s.aligning {
		s.alignment = math.Min(full, s.alignment+s.cfg.Alignment.Rate)
		if s.alignment >= full {
			s.aligning = false
			s.setStatus(mission.StatusArmed)
			s.say(ToneSuccess, "Vector locked. Ready for injection burn.")
		}
	}

	if !held {
		return
	}
	if s.alignment < full {
		s.fail(mission.LabelVectorMisaligned, "Tried to burn without aligning trajectory.")
		return
	}
	s.burnTick()
}

// burnTick charges and credits one held tick of a continuous burn. It
// returns false if the mission failed.
func (s *Simulation) burnTick() bool {
	if s.ledger.IsDepleted() {
		s.failFuel()
		return false
	}
	s.ledger.Debit(s.continuous.TickCost(s.inWindow))
	if s.ledger.IsDepleted() {
		s.failFuel()
		return false
	}
	eff := s.continuous.Efficiency(s.inWindow)
	s.metric += s.continuous.MetricRate * eff
	s.deltaV += s.continuous.DeltaVRate * eff
	return true
}

func (s *Simulation) failFuel() {
	if s.cfg.Variant == config.VariantInjection {
		s.fail(mission.LabelFuelExhausted, "Ran out of fuel before reaching escape velocity.")
		return
	}
	s.fail(mission.LabelFuelDepleted, "Propellant tanks are empty. Mission aborted.")
}

func (s *Simulation) validateApogee() {
	v := mission.ValidateApogee(s.stages, s.metric)
	switch v.Outcome {
	case mission.OutcomeSuccess:
		s.succeed(mission.StatusOrbitAchieved, "Orbit achieved! Final apogee is inside the target band.")
	case mission.OutcomeStageComplete:
		s.stages.SetIndex(v.StageIndex)
		s.alignment = s.drift()
		s.armed = false
		s.setStatus(mission.StatusStageComplete)
		s.EventBus.Publish(event.NewStageEvent(event.StageAdvanced, s, s.cfg.Name,
			v.StageIndex, s.stages.Active().Label, s.metric))
		s.say(ToneSuccess, fmt.Sprintf("Stage complete. Pitch drifted to %.1f°. Realign before %s.",
			s.alignment, s.stages.Active().Label))
	case mission.OutcomeFailed:
		s.fail(v.Failure.Label, v.Failure.Cause)
	default:
		s.setStatus(mission.StatusIdle)
		s.say(ToneNeutral, fmt.Sprintf("Burn ended short of %s. Hold ignite again at perigee.", s.stages.Active().Label))
	}
}

// drift returns a new pitch outside the alignment tolerance, rounded to 0.1°.
func (s *Simulation) drift() float64 {
	a := s.cfg.Alignment
	dir := -1.0
	if s.rng.Float64() > 0.5 {
		dir = 1
	}
	amount := a.DriftMin + s.rng.Float64()*(a.DriftMax-a.DriftMin)
	return math.Round(dir*amount*10) / 10
}

// setStatus moves the state machine and publishes the change.
func (s *Simulation) setStatus(to mission.Status) {
	from := s.machine.Status()
	if from == to {
		return
	}
	if err := s.machine.Transition(to); err != nil {
		// The engine only requests transitions its rules allow.
		panic(err)
	}
	s.EventBus.Publish(event.NewStatusEvent(s, s.cfg.Name, string(from), string(to)))
}

// fail ends the mission. The hold flag is released and undo is disabled.
func (s *Simulation) fail(label, cause string) {
	from := s.machine.Status()
	f := mission.NewFailure(label, cause)
	if err := s.machine.Fail(f); err != nil {
		panic(err)
	}
	s.burning = false
	s.aligning = false
	s.warping = false
	s.history.Clear()
	s.message = Message{Text: f.String(), Tone: ToneError}
	s.EventBus.Publish(event.NewStatusEvent(s, s.cfg.Name, string(from), string(mission.StatusFailed)))
	s.EventBus.Publish(event.NewFailureEvent(s, s.cfg.Name, label, cause))
}

func (s *Simulation) succeed(to mission.Status, text string) {
	s.burning = false
	s.setStatus(to)
	s.EventBus.Publish(event.NewStageEvent(event.MissionSucceeded, s, s.cfg.Name,
		s.stages.Index(), s.stages.Active().Label, s.metric))
	s.say(ToneSuccess, text)
}

func (s *Simulation) say(tone Tone, text string) {
	s.message = Message{Text: text, Tone: tone}
}

// Name returns the mission name.
func (s *Simulation) Name() string {
	return s.cfg.Name
}

// Config returns the mission configuration.
func (s *Simulation) Config() config.MissionConfig {
	return s.cfg
}

// Status returns the current mission status.
func (s *Simulation) Status() mission.Status {
	return s.machine.Status()
}

// Failure returns the reason the mission failed, if it did.
func (s *Simulation) Failure() (mission.Failure, bool) {
	return s.machine.Failure()
}
