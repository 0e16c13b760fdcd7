// pkg/mission/stage_test.go
package mission

import "testing"

func raisingLadder() *Ladder {
	return NewLadder([]Stage{
		{Label: "Burn 1", Target: 40000},
		{Label: "Burn 2", Target: 71600},
		{Label: "Burn 3", Target: 100000},
		{Label: "Burn 4", Target: 192000},
		{Label: "Final TMI Burn", Target: 282000},
	})
}

func TestStageContains(t *testing.T) {
	s := Stage{Target: 16000, Tolerance: 2500}
	tests := []struct {
		metric   float64
		expected bool
	}{
		{13500, true},
		{18500, true},
		{16000, true},
		{13499, false},
		{18501, false},
	}
	for _, tt := range tests {
		if got := s.Contains(tt.metric); got != tt.expected {
			t.Errorf("Contains(%v) = %v, expected %v", tt.metric, got, tt.expected)
		}
	}
}

func TestLadderNavigation(t *testing.T) {
	l := raisingLadder()
	if l.Index() != 0 || l.Active().Label != "Burn 1" {
		t.Fatalf("Expected Burn 1 active, got %+v", l.Active())
	}

	l.SetIndex(4)
	if !l.IsLast() || l.Complete() {
		t.Error("Expected last stage active but not complete")
	}
	l.Advance()
	if !l.Complete() {
		t.Error("Expected ladder complete")
	}
	if l.Active().Label != "Final TMI Burn" {
		t.Errorf("Expected Active to clamp to the last stage, got %q", l.Active().Label)
	}
	l.Advance()
	if l.Index() != l.Len() {
		t.Errorf("Expected index to stay at %d, got %d", l.Len(), l.Index())
	}

	l.SetIndex(-3)
	if l.Index() != 0 {
		t.Errorf("Expected SetIndex to clamp at 0, got %d", l.Index())
	}
}

func TestLadderFirstAbove(t *testing.T) {
	l := raisingLadder()
	tests := []struct {
		metric   float64
		expected int
	}{
		{23500, 0},
		{40000, 1},
		{93500, 2},
		{100000, 3},
		{282000, 5},
		{295000, 5},
	}
	for _, tt := range tests {
		if got := l.FirstAbove(tt.metric); got != tt.expected {
			t.Errorf("FirstAbove(%v) = %d, expected %d", tt.metric, got, tt.expected)
		}
	}
}

func TestBandContains(t *testing.T) {
	b := Band{Min: 11.1, Max: 11.3}
	if !b.Contains(11.15) || !b.Contains(11.1) || !b.Contains(11.3) {
		t.Error("Expected band to include its interior and edges")
	}
	if b.Contains(11.09) || b.Contains(11.31) {
		t.Error("Expected band to exclude outside values")
	}
}

func TestHistorySingleLevel(t *testing.T) {
	var h History
	if h.Available() {
		t.Fatal("Expected empty history")
	}

	h.Record(Snapshot{StageIndex: 0, Metric: 23500, Fuel: 100})
	h.Record(Snapshot{StageIndex: 1, Metric: 40000, Fuel: 90})

	s, ok := h.Take()
	if !ok {
		t.Fatal("Expected a snapshot")
	}
	if s != (Snapshot{StageIndex: 1, Metric: 40000, Fuel: 90}) {
		t.Errorf("Expected the latest snapshot, got %+v", s)
	}
	if _, ok := h.Take(); ok {
		t.Error("Expected second Take to find nothing")
	}

	h.Record(s)
	h.Clear()
	if h.Available() {
		t.Error("Expected Clear to drop the snapshot")
	}
}
