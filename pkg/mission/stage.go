// pkg/mission/stage.go
package mission

import "math"

// Stage is one milestone: a target metric and its acceptance tolerance.
type Stage struct {
	Label     string  `json:"label"`
	Target    float64 `json:"target"`
	Tolerance float64 `json:"tolerance,omitempty"`
}

// Contains reports whether metric lies in [Target-Tolerance, Target+Tolerance].
func (s Stage) Contains(metric float64) bool {
	return math.Abs(metric-s.Target) <= s.Tolerance
}

// Upper is the largest accepted metric.
func (s Stage) Upper() float64 {
	return s.Target + s.Tolerance
}

// Band is an absolute acceptance band used by the final injection burn.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Ladder is the ordered stage sequence and the index of the active stage.
// The index may equal Len() once every stage is consumed; Active then
// returns the last stage.
type Ladder struct {
	stages []Stage
	index  int
}

// NewLadder creates a ladder positioned at the first stage.
func NewLadder(stages []Stage) *Ladder {
	return &Ladder{stages: append([]Stage(nil), stages...)}
}

// Len returns the number of stages.
func (l *Ladder) Len() int {
	return len(l.stages)
}

// Index returns the active stage index.
func (l *Ladder) Index() int {
	return l.index
}

// Stages returns a copy of the stage list.
func (l *Ladder) Stages() []Stage {
	return append([]Stage(nil), l.stages...)
}

// Active returns the current stage, clamped to the last one.
func (l *Ladder) Active() Stage {
	if len(l.stages) == 0 {
		return Stage{}
	}
	i := l.index
	if i >= len(l.stages) {
		i = len(l.stages) - 1
	}
	return l.stages[i]
}

// IsLast reports whether the active stage is the final one.
func (l *Ladder) IsLast() bool {
	return l.index >= len(l.stages)-1
}

// Complete reports whether every stage has been consumed.
func (l *Ladder) Complete() bool {
	return l.index >= len(l.stages)
}

// Advance moves to the next stage.
func (l *Ladder) Advance() {
	if l.index < len(l.stages) {
		l.index++
	}
}

// SetIndex positions the ladder, clamped to [0, Len()].
func (l *Ladder) SetIndex(i int) {
	switch {
	case i < 0:
		l.index = 0
	case i > len(l.stages):
		l.index = len(l.stages)
	default:
		l.index = i
	}
}

// FirstAbove returns the index of the first stage whose target exceeds
// metric, or Len() if there is none.
func (l *Ladder) FirstAbove(metric float64) int {
	for i, s := range l.stages {
		if s.Target > metric {
			return i
		}
	}
	return len(l.stages)
}
