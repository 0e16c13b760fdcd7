// pkg/ledger/burn.go
package ledger

// ContinuousModel charges fuel every tick while a burn is held.
type ContinuousModel struct {
	FuelRate            float64 // per tick, in window
	OffWindowFuel       float64 // fraction of FuelRate charged outside the window
	MetricRate          float64 // progress per tick, in window
	DeltaVRate          float64 // velocity gain per tick, in window
	OffWindowEfficiency float64 // fraction of the gains earned outside the window
}

// TickCost returns the fuel charged for one held tick.
func (m ContinuousModel) TickCost(inWindow bool) float64 {
	if inWindow {
		return m.FuelRate
	}
	return m.FuelRate * m.OffWindowFuel
}

// Efficiency returns the multiplier applied to MetricRate and DeltaVRate.
func (m ContinuousModel) Efficiency(inWindow bool) float64 {
	if inWindow {
		return 1
	}
	return m.OffWindowEfficiency
}

// Option is a named discrete burn strength.
type Option struct {
	Key         string
	Label       string
	Description string
	Gain        float64
	FuelCost    float64
}

// DiscreteModel charges a fixed cost per fire action.
type DiscreteModel struct {
	Options          []Option
	MistimedFraction float64
}

// Option looks up a burn strength by key.
func (m DiscreteModel) Option(key string) (Option, bool) {
	for _, o := range m.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

// Cost returns the fuel charged for firing opt. A mistimed burn is charged
// MistimedFraction of the nominal cost.
func (m DiscreteModel) Cost(opt Option, inWindow bool) float64 {
	if inWindow {
		return opt.FuelCost
	}
	return opt.FuelCost * m.MistimedFraction
}
