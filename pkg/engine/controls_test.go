// pkg/engine/controls_test.go
package engine

import (
	"errors"
	"testing"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/mission"
)

func TestApogeeIgnitionGates(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, s *Simulation)
		wantBurning bool
		wantStatus  mission.Status
		wantFailure string
		wantLockout bool
	}{
		{
			name:        "attitude control off tumbles",
			setup:       func(*testing.T, *Simulation) {},
			wantStatus:  mission.StatusFailed,
			wantFailure: mission.LabelTumbled,
		},
		{
			name: "unarmed ignite is ignored",
			setup: func(t *testing.T, s *Simulation) {
				if err := s.ToggleSubsystem(SubsystemACS); err != nil {
					t.Fatalf("ToggleSubsystem: %v", err)
				}
				if err := s.SetAlignment(0); err != nil {
					t.Fatalf("SetAlignment: %v", err)
				}
			},
			wantStatus: mission.StatusIdle,
		},
		{
			name: "misaligned ignite locks out",
			setup: func(t *testing.T, s *Simulation) {
				prepareApogee(t, s)
				if err := s.SetAlignment(10); err != nil {
					t.Fatalf("SetAlignment: %v", err)
				}
			},
			wantStatus:  mission.StatusIdle,
			wantLockout: true,
		},
		{
			name:        "ready craft ignites",
			setup:       prepareApogee,
			wantBurning: true,
			wantStatus:  mission.StatusIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSimulation(t, config.DefaultOrbitInjection())
			tt.setup(t, s)

			if err := s.StartBurn(); err != nil {
				t.Fatalf("StartBurn: %v", err)
			}
			tel := s.Telemetry()
			if tel.Burning != tt.wantBurning {
				t.Errorf("Burning = %v, want %v", tel.Burning, tt.wantBurning)
			}
			if tel.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", tel.Status, tt.wantStatus)
			}
			if tt.wantFailure == "" && tel.Failure != nil {
				t.Errorf("Unexpected failure %q", tel.Failure.Label)
			}
			if tt.wantFailure != "" && (tel.Failure == nil || tel.Failure.Label != tt.wantFailure) {
				t.Errorf("Failure = %v, want %q", tel.Failure, tt.wantFailure)
			}
			if tel.Lockout != tt.wantLockout {
				t.Errorf("Lockout = %v, want %v", tel.Lockout, tt.wantLockout)
			}
		})
	}
}

func TestAlignmentLockoutClears(t *testing.T) {
	cfg := config.DefaultOrbitInjection()
	s := newTestSimulation(t, cfg)
	prepareApogee(t, s)
	if err := s.SetAlignment(12); err != nil {
		t.Fatalf("SetAlignment: %v", err)
	}
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}

	for i := 1; i < cfg.Alignment.LockoutTicks; i++ {
		s.Tick()
		if !s.Telemetry().Lockout {
			t.Fatalf("Lockout cleared after %d ticks, want %d", i, cfg.Alignment.LockoutTicks)
		}
	}
	s.Tick()
	tel := s.Telemetry()
	if tel.Lockout {
		t.Errorf("Lockout still set after %d ticks", cfg.Alignment.LockoutTicks)
	}
	if tel.Status.Terminal() {
		t.Errorf("Lockout must not end the mission, got %s", tel.Status)
	}

	// Realigned, the same craft can ignite.
	if err := s.SetAlignment(0); err != nil {
		t.Fatalf("SetAlignment: %v", err)
	}
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	if !s.Telemetry().Burning {
		t.Error("Expected burn after realignment")
	}
}

func TestAttitudeControlOffDuringBurnTumbles(t *testing.T) {
	s := newTestSimulation(t, config.DefaultOrbitInjection())
	prepareApogee(t, s)
	if err := s.StartBurn(); err != nil {
		t.Fatalf("StartBurn: %v", err)
	}
	s.Tick()

	if err := s.ToggleSubsystem(SubsystemACS); err != nil {
		t.Fatalf("ToggleSubsystem: %v", err)
	}
	tel := s.Telemetry()
	if tel.Status != mission.StatusFailed {
		t.Fatalf("Status = %s, want failed", tel.Status)
	}
	if tel.Failure == nil || tel.Failure.Label != mission.LabelTumbled {
		t.Errorf("Failure = %v, want %q", tel.Failure, mission.LabelTumbled)
	}
	if err := s.ToggleSubsystem(SubsystemACS); !errors.Is(err, ErrMissionOver) {
		t.Errorf("Toggle after failure error = %v, want ErrMissionOver", err)
	}
}

func TestApogeeControlRefusals(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, s *Simulation)
		act     func(s *Simulation) error
		wantErr error
	}{
		{
			name:    "trim with attitude control off",
			setup:   func(*testing.T, *Simulation) {},
			act:     func(s *Simulation) error { return s.SetAlignment(0) },
			wantErr: ErrSubsystemOffline,
		},
		{
			name: "trim during burn",
			setup: func(t *testing.T, s *Simulation) {
				prepareApogee(t, s)
				if err := s.StartBurn(); err != nil {
					t.Fatalf("StartBurn: %v", err)
				}
			},
			act:     func(s *Simulation) error { return s.SetAlignment(2) },
			wantErr: ErrBurnInProgress,
		},
		{
			name: "disarm during burn",
			setup: func(t *testing.T, s *Simulation) {
				prepareApogee(t, s)
				if err := s.StartBurn(); err != nil {
					t.Fatalf("StartBurn: %v", err)
				}
			},
			act:     func(s *Simulation) error { return s.SetArmed(false) },
			wantErr: ErrBurnInProgress,
		},
		{
			name:    "unknown subsystem",
			setup:   func(*testing.T, *Simulation) {},
			act:     func(s *Simulation) error { return s.ToggleSubsystem("radar") },
			wantErr: ErrUnknownSubsystem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSimulation(t, config.DefaultOrbitInjection())
			tt.setup(t, s)
			before := s.Telemetry()

			err := tt.act(s)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			after := s.Telemetry()
			if after.Alignment != before.Alignment || after.Armed != before.Armed || after.Status != before.Status {
				t.Errorf("Refused control changed state: before %+v after %+v", before, after)
			}
		})
	}
}

func TestAlignmentClampedToRange(t *testing.T) {
	cfg := config.DefaultOrbitInjection()
	s := newTestSimulation(t, cfg)
	if err := s.ToggleSubsystem(SubsystemACS); err != nil {
		t.Fatalf("ToggleSubsystem: %v", err)
	}

	for _, tt := range []struct{ in, want float64 }{
		{90, cfg.Alignment.Max},
		{-90, cfg.Alignment.Min},
		{3.5, 3.5},
	} {
		if err := s.SetAlignment(tt.in); err != nil {
			t.Fatalf("SetAlignment(%v): %v", tt.in, err)
		}
		if got := s.Telemetry().Alignment; got != tt.want {
			t.Errorf("SetAlignment(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}
}
