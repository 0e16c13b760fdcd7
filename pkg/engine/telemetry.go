// pkg/engine/telemetry.go
package engine

import (
	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/mission"
)

// Tone classifies a player message.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Message is the latest human-readable feedback for the player.
type Message struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// StrengthOption describes a selectable discrete burn.
type StrengthOption struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Gain        float64 `json:"gain"`
	FuelCost    float64 `json:"fuelCost"`
}

// Telemetry is a read-only projection of the simulation taken after a tick
// or action. It shares no memory with the simulation.
type Telemetry struct {
	Mission string         `json:"mission"`
	Variant config.Variant `json:"variant"`
	Tick    uint64         `json:"tick"`

	Anomaly  float64 `json:"anomaly"`
	InWindow bool    `json:"inWindow"`
	Apogee   float64 `json:"apogee,omitempty"`
	// Velocity is the authoritative metric for injection missions and the
	// display speed otherwise.
	Velocity  float64 `json:"velocity"`
	DeltaV    float64 `json:"deltaV"`
	Fuel      float64 `json:"fuel"`
	Alignment float64 `json:"alignment"`

	Status  mission.Status   `json:"status"`
	Failure *mission.Failure `json:"failure,omitempty"`

	StageIndex int            `json:"stageIndex"`
	StageCount int            `json:"stageCount"`
	Stage      *mission.Stage `json:"stage,omitempty"`

	Armed       bool            `json:"armed"`
	Burning     bool            `json:"burning"`
	Aligning    bool            `json:"aligning"`
	Warping     bool            `json:"warping"`
	Initialized bool            `json:"initialized"`
	Lockout     bool            `json:"lockout"`
	Subsystems  map[string]bool `json:"subsystems,omitempty"`

	Strength  string           `json:"strength,omitempty"`
	Strengths []StrengthOption `json:"strengths,omitempty"`
	CanUndo   bool             `json:"canUndo"`

	Message Message `json:"message"`
}

// Telemetry returns the current snapshot.
func (s *Simulation) Telemetry() Telemetry {
	t := Telemetry{
		Mission:     s.cfg.Name,
		Variant:     s.cfg.Variant,
		Tick:        s.tick,
		Anomaly:     s.anomaly,
		InWindow:    s.inWindow,
		DeltaV:      s.deltaV,
		Fuel:        s.ledger.Fuel(),
		Alignment:   s.alignment,
		Status:      s.Status(),
		StageIndex:  s.stages.Index(),
		StageCount:  s.stages.Len(),
		Armed:       s.armed,
		Burning:     s.burning,
		Aligning:    s.aligning,
		Warping:     s.warping,
		Initialized: s.initialized,
		Lockout:     s.lockout > 0,
		Strength:    s.strength,
		CanUndo:     s.history.Available(),
		Message:     s.message,
	}

	if s.cfg.Variant == config.VariantInjection {
		t.Velocity = s.metric
	} else {
		t.Apogee = s.metric
		t.Velocity = s.displayVelocity
	}
	if f, ok := s.machine.Failure(); ok {
		t.Failure = &f
	}
	if s.stages.Len() > 0 {
		stage := s.stages.Active()
		t.Stage = &stage
	}
	if s.hasSubsystems() {
		t.Subsystems = map[string]bool{SubsystemACS: s.acs, SubsystemTelemetry: s.link}
	}
	for _, o := range s.discrete.Options {
		t.Strengths = append(t.Strengths, StrengthOption{
			Key:         o.Key,
			Label:       o.Label,
			Description: o.Description,
			Gain:        o.Gain,
			FuelCost:    o.FuelCost,
		})
	}
	return t
}

func welcomeMessage(v config.Variant) Message {
	switch v {
	case config.VariantApogee:
		return Message{Text: "Enable ACS and trim pitch to within tolerance to begin.", Tone: ToneNeutral}
	case config.VariantLadder:
		return Message{Text: "Welcome! Strategy tip: use Small or Medium burns to save fuel. Strong burns are wasteful!", Tone: ToneNeutral}
	default:
		return Message{Text: "Align the injection vector, then burn at perigee.", Tone: ToneNeutral}
	}
}
