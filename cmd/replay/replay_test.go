// cmd/replay/replay_test.go
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/engine"
)

const ladderScript = `
mission: orbit-raising
steps:
  - action: warp
    until: warp_complete
  - action: fire
  - action: toggle_subsystem
    subsystem: acs
  - ticks: 5
`

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func readFrames(t *testing.T, out []byte) []Frame {
	t.Helper()
	var frames []Frame
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var f Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			t.Fatalf("decode frame %q: %v", sc.Text(), err)
		}
		frames = append(frames, f)
	}
	return frames
}

func TestLoadScript(t *testing.T) {
	script, err := LoadScript(writeScript(t, "ladder.yaml", ladderScript))
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if script.Mission != config.MissionOrbitRaising || len(script.Steps) != 4 {
		t.Fatalf("script = %+v", script)
	}
	if script.Steps[0].Until != untilWarpComplete || script.Steps[2].Subsystem != "acs" || script.Steps[3].Ticks != 5 {
		t.Errorf("steps = %+v", script.Steps)
	}

	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing script")
	}
}

func TestReplayLadder(t *testing.T) {
	script, err := LoadScript(writeScript(t, "ladder.yaml", ladderScript))
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	var out bytes.Buffer
	final, err := Replay(config.DefaultConfig(), script, &out)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	frames := readFrames(t, out.Bytes())
	// initial, warp, warp settled, fire, toggle, ticks
	if len(frames) != 6 {
		t.Fatalf("got %d frames, want 6", len(frames))
	}

	settled := frames[2].Telemetry
	if settled.Warping || settled.Anomaly != 0 {
		t.Errorf("after warp anomaly=%v warping=%v", settled.Anomaly, settled.Warping)
	}

	fired := frames[3]
	if fired.Action != string(engine.ActionFire) || fired.Error != "" {
		t.Errorf("fire frame = %+v", fired)
	}
	if fired.Telemetry.Apogee != 93500 || fired.Telemetry.Fuel != 75 {
		t.Errorf("after fire apogee=%v fuel=%v, want 93500/75", fired.Telemetry.Apogee, fired.Telemetry.Fuel)
	}

	if frames[4].Error == "" || !strings.Contains(frames[4].Error, "not supported") {
		t.Errorf("toggle on ladder should be rejected, got %q", frames[4].Error)
	}

	if final.Tick != settled.Tick+5 {
		t.Errorf("final tick = %d, want %d", final.Tick, settled.Tick+5)
	}
}

func TestReplayDeterministic(t *testing.T) {
	script := &Script{
		Mission: config.MissionOrbitInjection,
		Seed:    42,
		Every:   10,
		Steps: []Step{
			{Action: string(engine.ActionToggleSubsystem), Subsystem: engine.SubsystemACS},
			{Action: string(engine.ActionSetAlignment), Value: 0, Ticks: 30},
			{Action: string(engine.ActionSetArmed), Armed: true},
			{Action: string(engine.ActionStartBurn), Ticks: 25},
			{Action: string(engine.ActionStopBurn), Ticks: 7},
		},
	}

	var first, second bytes.Buffer
	if _, err := Replay(config.DefaultConfig(), script, &first); err != nil {
		t.Fatalf("first replay: %v", err)
	}
	if _, err := Replay(config.DefaultConfig(), script, &second); err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("identical script and seed produced different trajectories")
	}

	// 1 initial + 5 action frames + ticks sampled every 10 (3 + 2 + 0)
	// + trailing frames for the 25 and 7 tick steps.
	if got := len(readFrames(t, first.Bytes())); got != 13 {
		t.Errorf("got %d frames, want 13", got)
	}
}

func TestReplayErrors(t *testing.T) {
	tests := []struct {
		name    string
		script  *Script
		wantErr error
		substr  string
	}{
		{
			name:   "unknown mission",
			script: &Script{Mission: "moon-landing"},
			substr: "unknown mission",
		},
		{
			name: "unknown condition",
			script: &Script{
				Mission: config.MissionOrbitRaising,
				Steps:   []Step{{Until: "forever"}},
			},
			substr: "unknown condition",
		},
		{
			name: "condition not reached",
			script: &Script{
				Mission: config.MissionOrbitRaising,
				Steps:   []Step{{Until: untilInWindow, Ticks: 1}},
			},
			wantErr: errNotReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := Replay(config.DefaultConfig(), tt.script, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.substr)
			}
		})
	}
}
