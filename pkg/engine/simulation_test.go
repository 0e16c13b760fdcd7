// pkg/engine/simulation_test.go
package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/event"
	"github.com/opd-ai/go-orbitsim/pkg/mission"
)

const maxTicks = 1_000_000

func newTestSimulation(t *testing.T, cfg config.MissionConfig) *Simulation {
	t.Helper()
	s, err := NewSimulation(cfg, nil)
	if err != nil {
		t.Fatalf("NewSimulation(%s) failed: %v", cfg.Name, err)
	}
	return s
}

// tickUntil ticks until cond holds, failing the test if it never does or the
// mission ends first.
func tickUntil(t *testing.T, s *Simulation, what string, cond func() bool) {
	t.Helper()
	for i := 0; !cond(); i++ {
		if i > maxTicks {
			t.Fatalf("%s: not reached after %d ticks", what, maxTicks)
		}
		if s.Status().Terminal() {
			t.Fatalf("%s: mission ended early with status %s", what, s.Status())
		}
		s.Tick()
	}
}

// prepareApogee enables attitude control, trims pitch and arms the engine.
func prepareApogee(t *testing.T, s *Simulation) {
	t.Helper()
	if !s.acs {
		if err := s.ToggleSubsystem(SubsystemACS); err != nil {
			t.Fatalf("ToggleSubsystem: %v", err)
		}
	}
	if err := s.SetAlignment(0); err != nil {
		t.Fatalf("SetAlignment: %v", err)
	}
	if err := s.SetArmed(true); err != nil {
		t.Fatalf("SetArmed: %v", err)
	}
}

// burnApogeeTo holds a burn until the apogee reaches target, then releases
// and runs the validation tick.
func burnApogeeTo(t *testing.T, s *Simulation, target float64) {
	t.Helper()
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	if !s.burning {
		t.Fatalf("Expected burn to start, message: %q", s.message.Text)
	}
	tickUntil(t, s, "apogee target", func() bool { return s.metric >= target })
	if err := s.StopBurn(); err != nil {
		t.Fatalf("StopBurn: %v", err)
	}
	s.Tick()
}

// warpToPerigee warps and ticks until the warp is captured.
func warpToPerigee(t *testing.T, s *Simulation) {
	t.Helper()
	if err := s.WarpToPerigee(); err != nil {
		t.Fatalf("WarpToPerigee: %v", err)
	}
	tickUntil(t, s, "warp capture", func() bool { return !s.warping })
}

func TestNewSimulationRejectsInvalidMission(t *testing.T) {
	cfg := config.DefaultOrbitRaising()
	cfg.Ceiling = 0
	if _, err := NewSimulation(cfg, nil); err == nil {
		t.Fatal("Expected error for invalid mission")
	}
}

func TestInitialState(t *testing.T) {
	tests := []struct {
		cfg      config.MissionConfig
		metric   float64
		strength string
	}{
		{config.DefaultOrbitInjection(), 400, ""},
		{config.DefaultOrbitRaising(), 23500, "MEDIUM"},
		{config.DefaultTransPlanetaryInjection(), 10.1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Name, func(t *testing.T) {
			s := newTestSimulation(t, tt.cfg)
			tel := s.Telemetry()
			if tel.Anomaly != 180 {
				t.Errorf("Expected anomaly 180, got %v", tel.Anomaly)
			}
			if tel.Fuel != 100 {
				t.Errorf("Expected fuel 100, got %v", tel.Fuel)
			}
			if tel.Status != mission.StatusIdle {
				t.Errorf("Expected idle, got %s", tel.Status)
			}
			if s.metric != tt.metric {
				t.Errorf("Expected metric %v, got %v", tt.metric, s.metric)
			}
			if tel.Strength != tt.strength {
				t.Errorf("Expected strength %q, got %q", tt.strength, tel.Strength)
			}
			if tel.InWindow {
				t.Error("Expected apogee start to be outside the window")
			}
			if tel.Message.Text == "" {
				t.Error("Expected a welcome message")
			}
		})
	}
}

func TestWindowPredicatePerVariant(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, m := range cfg.Missions {
		s := newTestSimulation(t, m)
		if !s.integrator.Window.Contains(0) {
			t.Errorf("%s: expected anomaly 0 in window", m.Name)
		}
		if s.integrator.Window.Contains(180) {
			t.Errorf("%s: expected anomaly 180 outside window", m.Name)
		}
	}
}

func TestApogeeFrozenUntilAligned(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())

	for i := 0; i < 50; i++ {
		s.Tick()
	}
	if s.anomaly != 180 {
		t.Fatalf("Expected craft parked at 180, got %v", s.anomaly)
	}

	if err := s.ToggleSubsystem(SubsystemACS); err != nil {
		t.Fatalf("ToggleSubsystem: %v", err)
	}
	if s.initialized {
		t.Fatal("Expected orbit to stay frozen with pitch at -15")
	}
	if err := s.SetAlignment(-4); err != nil {
		t.Fatalf("SetAlignment: %v", err)
	}
	if !s.initialized {
		t.Fatal("Expected orbit to initialize once pitch is within tolerance")
	}

	// The latch holds even if pitch moves out again.
	if err := s.SetAlignment(30); err != nil {
		t.Fatalf("SetAlignment: %v", err)
	}
	s.Tick()
	if s.anomaly == 180 {
		t.Error("Expected the orbit to advance after initialization")
	}
}

func TestApogeeFullMission(t *testing.T) {
	cfg := config.DefaultOrbitInjection()
	s := newTestSimulation(t, cfg)

	var advanced, succeeded int
	s.EventBus.Subscribe(event.StageAdvanced, func(event.Event) { advanced++ })
	s.EventBus.Subscribe(event.MissionSucceeded, func(event.Event) { succeeded++ })

	prepareApogee(t, s)
	burnApogeeTo(t, s, 14000)

	if s.Status() != mission.StatusStageComplete {
		t.Fatalf("Expected stage_complete, got %s (%q)", s.Status(), s.message.Text)
	}
	if s.stages.Index() != 1 {
		t.Errorf("Expected stage index 1, got %d", s.stages.Index())
	}
	if s.armed {
		t.Error("Expected stage completion to disarm the engine")
	}

	r := newSource(cfg.Seed)
	dir := -1.0
	if r.Float64() > 0.5 {
		dir = 1
	}
	wantPitch := math.Round(dir*(8+r.Float64()*12)*10) / 10
	if s.alignment != wantPitch {
		t.Errorf("Expected drifted pitch %v, got %v", wantPitch, s.alignment)
	}
	if math.Abs(s.alignment) <= cfg.Alignment.Tolerance {
		t.Errorf("Expected drifted pitch outside tolerance, got %v", s.alignment)
	}

	prepareApogee(t, s)
	burnApogeeTo(t, s, 19000)
	if s.Status() != mission.StatusStageComplete || s.stages.Index() != 2 {
		t.Fatalf("Expected second stage complete, got %s at index %d", s.Status(), s.stages.Index())
	}

	prepareApogee(t, s)
	burnApogeeTo(t, s, 23000)
	if s.Status() != mission.StatusOrbitAchieved {
		t.Fatalf("Expected orbit_achieved, got %s (%q)", s.Status(), s.message.Text)
	}
	if advanced != 2 || succeeded != 1 {
		t.Errorf("Expected 2 stage events and 1 success, got %d and %d", advanced, succeeded)
	}

	if err := s.SetArmed(true); !errors.Is(err, ErrMissionOver) {
		t.Errorf("Expected ErrMissionOver when arming after success, got %v", err)
	}
}

func TestApogeeOverburn(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	burnApogeeTo(t, s, 18501)

	f, ok := s.Failure()
	if s.Status() != mission.StatusFailed || !ok {
		t.Fatalf("Expected failed, got %s", s.Status())
	}
	if f.Label != mission.LabelOverburnUnstable {
		t.Errorf("Expected %q, got %q", mission.LabelOverburnUnstable, f.Label)
	}
}

func TestApogeeShortBurnReturnsToIdle(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	burnApogeeTo(t, s, 4000)

	if s.Status() != mission.StatusIdle {
		t.Errorf("Expected idle after a short burn, got %s", s.Status())
	}
	if s.stages.Index() != 0 {
		t.Errorf("Expected stage unchanged, got %d", s.stages.Index())
	}
	if !s.armed {
		t.Error("Expected engine to remain armed")
	}
}

func TestApogeeFuelExhaustionMidBurn(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	s.anomaly = 0
	s.inWindow = true
	s.ledger.Set(0.01)

	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	s.Tick()

	if s.ledger.Fuel() != 0 {
		t.Errorf("Expected fuel clamped to 0, got %v", s.ledger.Fuel())
	}
	f, _ := s.Failure()
	if s.Status() != mission.StatusFailed || f.Label != mission.LabelFuelDepleted {
		t.Errorf("Expected failed with %q, got %s %q", mission.LabelFuelDepleted, s.Status(), f.Label)
	}
	if s.burning {
		t.Error("Expected failure to release the hold")
	}
}

func TestApogeeOffWindowHoldWastesFuel(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	s.Tick()

	if s.inWindow {
		t.Fatal("Expected to be outside the window near apogee")
	}
	if math.Abs(s.ledger.Fuel()-(100-0.002)) > 1e-9 {
		t.Errorf("Expected idle debit of 0.002, fuel is %v", s.ledger.Fuel())
	}
	if s.metric != 400 {
		t.Errorf("Expected no apogee gain outside the window, got %v", s.metric)
	}
	if s.Status() != mission.StatusIdle {
		t.Errorf("Expected status to stay idle outside the window, got %s", s.Status())
	}
}

func TestLadderMediumBurnScenario(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	warpToPerigee(t, s)

	if s.anomaly != 0 || !s.inWindow {
		t.Fatalf("Expected warp to stop exactly at perigee, got %v (in window %v)", s.anomaly, s.inWindow)
	}
	if err := s.SelectStrength("MEDIUM"); err != nil {
		t.Fatalf("SelectStrength: %v", err)
	}
	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	if s.metric != 93500 {
		t.Errorf("Expected apogee 93500, got %v", s.metric)
	}
	if s.ledger.Fuel() != 75 {
		t.Errorf("Expected fuel 75, got %v", s.ledger.Fuel())
	}
	if s.stages.Index() != 2 || s.stages.Active().Label != "Burn 3" {
		t.Errorf("Expected Burn 3 active, got index %d", s.stages.Index())
	}
	if s.Status() != mission.StatusStageComplete {
		t.Errorf("Expected stage_complete, got %s", s.Status())
	}
}

func TestLadderOvershoot(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	s.metric = 270000
	s.stages.SetIndex(4)
	warpToPerigee(t, s)

	if err := s.SelectStrength("STRONG"); err != nil {
		t.Fatalf("SelectStrength: %v", err)
	}
	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}

	f, ok := s.Failure()
	if !ok || f.Label != mission.LabelCriticalOvershoot {
		t.Fatalf("Expected %q, got %+v", mission.LabelCriticalOvershoot, f)
	}
	if s.metric != 380000 {
		t.Errorf("Expected apogee 380000, got %v", s.metric)
	}
	if s.history.Available() {
		t.Error("Expected hard failure to clear undo history")
	}
	if err := s.Undo(); !errors.Is(err, ErrMissionOver) {
		t.Errorf("Expected ErrMissionOver from Undo, got %v", err)
	}
}

func TestLadderSuccess(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	s.metric = 260000
	s.stages.SetIndex(4)
	warpToPerigee(t, s)
	if err := s.SelectStrength("SMALL"); err != nil {
		t.Fatalf("SelectStrength: %v", err)
	}
	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if s.Status() != mission.StatusSuccess {
		t.Fatalf("Expected success, got %s", s.Status())
	}
	if s.stages.Index() != s.stages.Len() {
		t.Errorf("Expected every stage consumed, got index %d", s.stages.Index())
	}
}

func TestLadderMistimedBurn(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())

	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if s.ledger.Fuel() != 87.5 {
		t.Errorf("Expected half-cost debit to 87.5, got %v", s.ledger.Fuel())
	}
	if s.metric != 23500 {
		t.Errorf("Expected apogee unchanged, got %v", s.metric)
	}
	if !s.history.Available() {
		t.Fatal("Expected a mistimed burn to be undoable")
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if s.ledger.Fuel() != 100 {
		t.Errorf("Expected fuel restored to 100, got %v", s.ledger.Fuel())
	}
}

func TestLadderInsufficientFuel(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	s.ledger.Set(20)
	warpToPerigee(t, s)
	if err := s.SelectStrength("STRONG"); err != nil {
		t.Fatalf("SelectStrength: %v", err)
	}

	if err := s.Fire(); !errors.Is(err, ErrInsufficientFuel) {
		t.Fatalf("Expected ErrInsufficientFuel, got %v", err)
	}
	if s.ledger.Fuel() != 20 || s.metric != 23500 {
		t.Errorf("Expected no side effects, fuel %v apogee %v", s.ledger.Fuel(), s.metric)
	}
	if s.history.Available() {
		t.Error("Expected no snapshot for a rejected burn")
	}
}

func TestLadderEmptyTankFails(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	s.ledger.Set(0)
	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	f, _ := s.Failure()
	if f.Label != mission.LabelFuelDepleted {
		t.Errorf("Expected %q, got %q", mission.LabelFuelDepleted, f.Label)
	}
}

func TestUndoRestoresSnapshot(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	s.stages.SetIndex(1)
	s.metric = 40000
	s.ledger.Set(90)
	warpToPerigee(t, s)

	if err := s.SelectStrength("SMALL"); err != nil {
		t.Fatalf("SelectStrength: %v", err)
	}
	if err := s.Fire(); err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if s.metric != 70000 || s.ledger.Fuel() != 80 || s.stages.Index() != 1 {
		t.Fatalf("Unexpected post-burn state: apogee %v fuel %v index %d", s.metric, s.ledger.Fuel(), s.stages.Index())
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if s.stages.Index() != 1 || s.metric != 40000 || s.ledger.Fuel() != 90 {
		t.Errorf("Expected {1, 40000, 90}, got {%d, %v, %v}", s.stages.Index(), s.metric, s.ledger.Fuel())
	}

	before := s.Telemetry()
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Telemetry()) {
		t.Error("Expected second undo to leave state unchanged")
	}
}

func TestLadderWarpAlreadyAtPerigee(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitRaising())
	warpToPerigee(t, s)
	if err := s.WarpToPerigee(); err != nil {
		t.Fatalf("WarpToPerigee: %v", err)
	}
	if s.warping {
		t.Error("Expected no warp when already in the window")
	}
	if s.message.Text != "You are already at perigee!" {
		t.Errorf("Unexpected message %q", s.message.Text)
	}
}

func TestInjectionScenarios(t *testing.T) {
	tests := []struct {
		name     string
		velocity float64
		inWindow bool
		status   mission.Status
		label    string
	}{
		{"success", 11.15, true, mission.StatusSuccess, ""},
		{"timing_error", 11.15, false, mission.StatusFailed, mission.LabelTimingError},
		{"underburn", 10.8, true, mission.StatusFailed, mission.LabelUnderburn},
		{"overburn", 11.4, true, mission.StatusFailed, mission.LabelOverburn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
			if err := s.StartAlign(); err != nil {
				t.Fatalf("StartAlign: %v", err)
			}
			tickUntil(t, s, "vector lock", func() bool { return s.Status() == mission.StatusArmed })
			if s.alignment != 100 {
				t.Fatalf("Expected alignment 100, got %v", s.alignment)
			}

			if err := s.StartBurn(); err != nil {
				t.Fatalf("StartBurn: %v", err)
			}
			s.metric = tt.velocity
			s.inWindow = tt.inWindow
			if err := s.StopBurn(); err != nil {
				t.Fatalf("StopBurn: %v", err)
			}

			if s.Status() != tt.status {
				t.Errorf("Expected %s, got %s", tt.status, s.Status())
			}
			f, _ := s.Failure()
			if f.Label != tt.label {
				t.Errorf("Expected label %q, got %q", tt.label, f.Label)
			}
		})
	}
}

func TestInjectionAlignmentRamp(t *testing.T) {
	s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
	if err := s.StartAlign(); err != nil {
		t.Fatalf("StartAlign: %v", err)
	}
	if s.Status() != mission.StatusAligning {
		t.Fatalf("Expected aligning, got %s", s.Status())
	}
	for i := 0; i < 199; i++ {
		s.Tick()
	}
	if s.Status() != mission.StatusAligning || s.alignment != 99.5 {
		t.Fatalf("Expected 99.5%% and aligning after 199 ticks, got %v %s", s.alignment, s.Status())
	}
	s.Tick()
	if s.Status() != mission.StatusArmed {
		t.Errorf("Expected armed once alignment reaches 100, got %s", s.Status())
	}
}

func TestInjectionIgniteBeforeAlignment(t *testing.T) {
	s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	f, _ := s.Failure()
	if f.Label != mission.LabelAlignmentError {
		t.Errorf("Expected %q, got %q", mission.LabelAlignmentError, f.Label)
	}
}

func TestInjectionBurnGainsAndFuel(t *testing.T) {
	s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
	if err := s.StartAlign(); err != nil {
		t.Fatalf("StartAlign: %v", err)
	}
	tickUntil(t, s, "vector lock", func() bool { return s.Status() == mission.StatusArmed })
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}

	v0, f0 := s.metric, s.ledger.Fuel()
	s.Tick()
	if s.inWindow {
		t.Fatal("Expected to be away from perigee")
	}
	if math.Abs(s.metric-(v0+0.015*0.3)) > 1e-9 {
		t.Errorf("Expected off-window gain 0.0045, got %v", s.metric-v0)
	}
	if math.Abs(s.ledger.Fuel()-(f0-0.4)) > 1e-9 {
		t.Errorf("Expected fuel debit 0.4, got %v", f0-s.ledger.Fuel())
	}
}

func TestInjectionFuelExhausted(t *testing.T) {
	s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
	if err := s.StartAlign(); err != nil {
		t.Fatalf("StartAlign: %v", err)
	}
	tickUntil(t, s, "vector lock", func() bool { return s.Status() == mission.StatusArmed })
	s.ledger.Set(0.3)
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	s.Tick()

	f, _ := s.Failure()
	if f.Label != mission.LabelFuelExhausted {
		t.Errorf("Expected %q, got %q", mission.LabelFuelExhausted, f.Label)
	}
	if s.ledger.Fuel() != 0 {
		t.Errorf("Expected fuel 0, got %v", s.ledger.Fuel())
	}
}

func TestTerminalStateStopsPhysics(t *testing.T) {
	s := newTestSimulation(t, config.DefaultTransPlanetaryInjection())
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	if !s.Status().Terminal() {
		t.Fatal("Expected terminal status")
	}

	before := s.Telemetry()
	for i := 0; i < 100; i++ {
		s.Tick()
	}
	if !reflect.DeepEqual(before, s.Telemetry()) {
		t.Error("Expected no mutation after the mission ended")
	}
	if err := s.StartAlign(); !errors.Is(err, ErrMissionOver) {
		t.Errorf("Expected ErrMissionOver, got %v", err)
	}
}

func TestResetIdempotent(t *testing.T) {
	for _, m := range config.DefaultConfig().Missions {
		t.Run(m.Name, func(t *testing.T) {
			once := newTestSimulation(t, m)
			twice := newTestSimulation(t, m)

			for _, s := range []*Simulation{once, twice} {
				for i := 0; i < 300; i++ {
					s.Tick()
				}
				_ = s.Apply(Action{Kind: ActionFire})
				_ = s.Apply(Action{Kind: ActionStartAlign})
			}

			once.Reset()
			twice.Reset()
			twice.Reset()

			if !reflect.DeepEqual(once.Telemetry(), twice.Telemetry()) {
				t.Errorf("Telemetry differs:\n once:  %+v\n twice: %+v", once.Telemetry(), twice.Telemetry())
			}
			if once.rng.Uint64() != twice.rng.Uint64() {
				t.Error("Expected the drift source to be reseeded identically")
			}
			if once.Status() != mission.StatusIdle {
				t.Errorf("Expected idle after reset, got %s", once.Status())
			}
		})
	}
}

func TestResetRestoresStartValues(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	burnApogeeTo(t, s, 14000)
	s.Reset()

	tel := s.Telemetry()
	if tel.Anomaly != 180 || tel.Apogee != 400 || tel.Fuel != 100 || tel.Alignment != -15 {
		t.Errorf("Unexpected state after reset: %+v", tel)
	}
	if tel.Initialized || tel.Armed || tel.StageIndex != 0 {
		t.Errorf("Expected flags cleared after reset: %+v", tel)
	}
	if tel.Subsystems[SubsystemACS] {
		t.Error("Expected ACS off after reset")
	}
}

func TestDeterministicStatusTrajectory(t *testing.T) {
	run := func() []mission.Status {
		s := newTestSimulation(t, config.DefaultOrbitInjection())
		var out []mission.Status
		script := map[int]Action{
			0:    {Kind: ActionToggleSubsystem, Subsystem: SubsystemACS},
			1:    {Kind: ActionSetAlignment, Value: 0},
			2:    {Kind: ActionSetArmed, Armed: true},
			3:    {Kind: ActionStartBurn},
			6000: {Kind: ActionStopBurn},
		}
		for i := 0; i < 9000; i++ {
			if a, ok := script[i]; ok {
				_ = s.Apply(a)
			}
			s.Tick()
			out = append(out, s.Status())
		}
		return out
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical status trajectories")
	}
}

func TestInvariantsHoldEveryTick(t *testing.T) {
	for _, m := range config.DefaultConfig().Missions {
		t.Run(m.Name, func(t *testing.T) {
			s := newTestSimulation(t, m)
			_ = s.Apply(Action{Kind: ActionToggleSubsystem, Subsystem: SubsystemACS})
			_ = s.Apply(Action{Kind: ActionSetAlignment, Value: 0})
			_ = s.Apply(Action{Kind: ActionSetArmed, Armed: true})
			_ = s.Apply(Action{Kind: ActionStartAlign})

			for i := 0; i < 20000; i++ {
				switch i % 700 {
				case 0:
					_ = s.Apply(Action{Kind: ActionStartBurn})
					_ = s.Apply(Action{Kind: ActionWarp})
				case 350:
					_ = s.Apply(Action{Kind: ActionStopBurn})
					_ = s.Apply(Action{Kind: ActionFire})
				}
				s.Tick()

				tel := s.Telemetry()
				if tel.Anomaly < 0 || tel.Anomaly >= 360 {
					t.Fatalf("tick %d: anomaly %v outside [0,360)", i, tel.Anomaly)
				}
				if tel.Fuel < 0 || tel.Fuel > 100 {
					t.Fatalf("tick %d: fuel %v outside [0,100]", i, tel.Fuel)
				}
			}
		})
	}
}
