// pkg/mission/validator.go
package mission

import "fmt"

// Outcome is the decision reached by a validator.
type Outcome int

const (
	// OutcomeContinue leaves the stage unchanged.
	OutcomeContinue Outcome = iota
	// OutcomeStageComplete moves to Verdict.StageIndex.
	OutcomeStageComplete
	// OutcomeSuccess completes the mission.
	OutcomeSuccess
	// OutcomeFailed ends the mission with Verdict.Failure.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeStageComplete:
		return "stage_complete"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Verdict is the result of evaluating progress against the active stage.
type Verdict struct {
	Outcome    Outcome
	StageIndex int
	Failure    Failure
}

// ValidateApogee applies the continuous apogee table after a held burn ends:
// inside the band completes the stage (or the mission on the last stage),
// above it is a fatal overburn, below it changes nothing.
func ValidateApogee(l *Ladder, apogee float64) Verdict {
	stage := l.Active()
	switch {
	case stage.Contains(apogee):
		if l.IsLast() {
			return Verdict{Outcome: OutcomeSuccess, StageIndex: l.Index()}
		}
		return Verdict{Outcome: OutcomeStageComplete, StageIndex: l.Index() + 1}
	case apogee > stage.Upper():
		return Verdict{
			Outcome:    OutcomeFailed,
			StageIndex: l.Index(),
			Failure: NewFailure(LabelOverburnUnstable, fmt.Sprintf(
				"Apogee %.0f km overshoots the %.0f km target by more than %.0f km.",
				apogee, stage.Target, stage.Tolerance)),
		}
	default:
		return Verdict{Outcome: OutcomeContinue, StageIndex: l.Index()}
	}
}

// ValidateLadder applies the discrete table after a fired burn. The ceiling
// is checked before any stage logic. Otherwise the first stage whose target
// exceeds the new apogee becomes active; none left means success.
func ValidateLadder(l *Ladder, apogee, ceiling float64) Verdict {
	if apogee > ceiling {
		return Verdict{
			Outcome:    OutcomeFailed,
			StageIndex: l.Index(),
			Failure: NewFailure(LabelCriticalOvershoot, fmt.Sprintf(
				"Apogee %.0fk km exceeds safe limits. Orbit destabilized.", apogee/1000)),
		}
	}
	next := l.FirstAbove(apogee)
	switch {
	case next >= l.Len():
		return Verdict{Outcome: OutcomeSuccess, StageIndex: l.Len()}
	case next > l.Index():
		return Verdict{Outcome: OutcomeStageComplete, StageIndex: next}
	default:
		return Verdict{Outcome: OutcomeContinue, StageIndex: l.Index()}
	}
}

// ValidateInjection applies the escape-burn table on release. Band
// membership is decided first, then timing.
func ValidateInjection(b Band, velocity float64, inWindow bool) Verdict {
	switch {
	case b.Contains(velocity) && inWindow:
		return Verdict{Outcome: OutcomeSuccess}
	case b.Contains(velocity):
		return Verdict{Outcome: OutcomeFailed, Failure: NewFailure(LabelTimingError,
			"Correct velocity, but wrong position. Trajectory misses the target.")}
	case velocity < b.Min:
		return Verdict{Outcome: OutcomeFailed, Failure: NewFailure(LabelUnderburn, fmt.Sprintf(
			"Reached %.2f km/s. Needed at least %.1f km/s to escape.", velocity, b.Min))}
	default:
		return Verdict{Outcome: OutcomeFailed, Failure: NewFailure(LabelOverburn, fmt.Sprintf(
			"Reached %.2f km/s. Velocity too high (> %.1f), overshooting the intercept.", velocity, b.Max))}
	}
}
