// pkg/mission/failure.go
package mission

// Failure labels, surfaced verbatim to the player.
const (
	LabelFuelDepleted      = "FUEL DEPLETED"
	LabelFuelExhausted     = "FUEL EXHAUSTED"
	LabelTumbled           = "ACS OFF: TUMBLED"
	LabelOverburnUnstable  = "OVERBURN: ORBIT UNSTABLE"
	LabelCriticalOvershoot = "CRITICAL OVERSHOOT"
	LabelTimingError       = "TIMING ERROR"
	LabelUnderburn         = "UNDERBURN"
	LabelOverburn          = "OVERBURN"
	LabelAlignmentError    = "ALIGNMENT ERROR"
	LabelVectorMisaligned  = "VECTOR MISALIGNED"
)

// Category groups failures by what went wrong.
type Category string

const (
	CategoryResource  Category = "resource_exhaustion"
	CategoryGuidance  Category = "guidance_violation"
	CategoryThreshold Category = "threshold_violation"
)

// Failure is a terminal mission outcome: a short machine-readable label and
// a human-readable cause.
type Failure struct {
	Label    string   `json:"label"`
	Cause    string   `json:"cause"`
	Category Category `json:"category"`
}

// NewFailure builds a failure, deriving its category from the label.
func NewFailure(label, cause string) Failure {
	return Failure{Label: label, Cause: cause, Category: categorize(label)}
}

func categorize(label string) Category {
	switch label {
	case LabelFuelDepleted, LabelFuelExhausted:
		return CategoryResource
	case LabelOverburnUnstable, LabelCriticalOvershoot, LabelUnderburn, LabelOverburn:
		return CategoryThreshold
	default:
		return CategoryGuidance
	}
}

func (f Failure) String() string {
	if f.Cause == "" {
		return f.Label
	}
	return f.Label + ": " + f.Cause
}
