// cmd/replay/replay.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/engine"
	"github.com/opd-ai/go-orbitsim/pkg/event"
)

var errNotReached = errors.New("condition not reached")

// maxUntilTicks bounds a step that advances until a condition holds.
const maxUntilTicks = 10000

// Conditions a step can advance until.
const (
	untilWarpComplete = "warp_complete"
	untilInWindow     = "in_window"
	untilTerminal     = "terminal"
)

// Script is a scripted run against one mission.
type Script struct {
	Mission string `mapstructure:"mission"`
	// Seed overrides the catalogue seed when non-zero.
	Seed uint64 `mapstructure:"seed"`
	// Every emits a frame each Every ticks while advancing; 0 emits only
	// after each step.
	Every int    `mapstructure:"every"`
	Steps []Step `mapstructure:"steps"`
}

// Step applies an optional action, then advances the clock.
type Step struct {
	Action    string  `mapstructure:"action"`
	Subsystem string  `mapstructure:"subsystem"`
	Value     float64 `mapstructure:"value"`
	Armed     bool    `mapstructure:"armed"`
	Strength  string  `mapstructure:"strength"`

	Ticks int    `mapstructure:"ticks"`
	Until string `mapstructure:"until"`
}

// Frame is one line of replay output.
type Frame struct {
	Step      int              `json:"step"`
	Action    string           `json:"action,omitempty"`
	Error     string           `json:"error,omitempty"`
	Telemetry engine.Telemetry `json:"telemetry"`
}

// LoadScript reads a script from a JSON, YAML or TOML file.
func LoadScript(path string) (*Script, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return &s, nil
}

func (st Step) action() engine.Action {
	return engine.Action{
		Kind:      engine.ActionKind(st.Action),
		Subsystem: st.Subsystem,
		Value:     st.Value,
		Armed:     st.Armed,
		Strength:  st.Strength,
	}
}

func (st Step) done(t engine.Telemetry) (bool, error) {
	switch st.Until {
	case untilWarpComplete:
		return !t.Warping, nil
	case untilInWindow:
		return t.InWindow, nil
	case untilTerminal:
		return t.Status.Terminal(), nil
	default:
		return false, fmt.Errorf("unknown condition %q", st.Until)
	}
}

// Replay runs script against the catalogue and writes one JSON frame per
// line to w. Action errors are recorded in the frame and do not stop the
// run; the same script and seed always produce the same output.
func Replay(cat *config.Config, script *Script, w io.Writer) (engine.Telemetry, error) {
	name := script.Mission
	if name == "" {
		name = cat.DefaultMission
	}
	mc, ok := cat.Mission(name)
	if !ok {
		return engine.Telemetry{}, fmt.Errorf("unknown mission %q", name)
	}
	if script.Seed != 0 {
		mc.Seed = script.Seed
	}

	sim, err := engine.NewSimulation(mc, event.NewEventBus())
	if err != nil {
		return engine.Telemetry{}, err
	}

	enc := json.NewEncoder(w)
	emit := func(step int, action string, err error) error {
		f := Frame{Step: step, Action: action, Telemetry: sim.Telemetry()}
		if err != nil {
			f.Error = err.Error()
		}
		return enc.Encode(f)
	}

	if err := emit(0, "", nil); err != nil {
		return engine.Telemetry{}, err
	}

	for i, st := range script.Steps {
		n := i + 1
		if st.Action != "" {
			if err := emit(n, st.Action, sim.Apply(st.action())); err != nil {
				return engine.Telemetry{}, err
			}
		}

		limit := st.Ticks
		if st.Until != "" && limit == 0 {
			limit = maxUntilTicks
		}
		advanced := 0
		reached := st.Until == ""
		for advanced < limit {
			if st.Until != "" {
				done, err := st.done(sim.Telemetry())
				if err != nil {
					return engine.Telemetry{}, fmt.Errorf("step %d: %w", n, err)
				}
				if reached = done; done {
					break
				}
			}
			sim.Tick()
			advanced++
			if script.Every > 0 && advanced%script.Every == 0 {
				if err := emit(n, "", nil); err != nil {
					return engine.Telemetry{}, err
				}
			}
		}
		if !reached {
			if reached, err = st.done(sim.Telemetry()); err != nil {
				return engine.Telemetry{}, fmt.Errorf("step %d: %w", n, err)
			}
			if !reached {
				return sim.Telemetry(), fmt.Errorf("step %d: %w: %s after %d ticks", n, errNotReached, st.Until, advanced)
			}
		}
		if advanced > 0 && (script.Every == 0 || advanced%script.Every != 0) {
			if err := emit(n, "", nil); err != nil {
				return engine.Telemetry{}, err
			}
		}
	}

	return sim.Telemetry(), nil
}
