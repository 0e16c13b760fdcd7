// pkg/orbit/orbit.go
package orbit

import "math"

// Perigee and Apogee are the anomalies of the closest and farthest points.
const (
	Perigee = 0.0
	Apogee  = 180.0
)

// Params tunes the angular-speed approximation. The model is a gameplay
// approximation: fast near perigee, slow near apogee, slower overall as the
// orbit grows.
type Params struct {
	BaseSpeed float64 // degrees per tick before scaling
	Kepler    float64 // k in 1 + k·cos(anomaly)

	// Size damping: SizeRef/(metric+SizeOffset), floored at MinSizeFactor.
	// A zero SizeRef disables damping.
	SizeRef       float64
	SizeOffset    float64
	MinSizeFactor float64

	// Boost multiplies the speed once the metric exceeds BoostAbove.
	BoostAbove  float64
	BoostFactor float64

	WarpSpeed   float64 // constant speed while warping
	WarpCapture float64 // half-width of the band that ends a warp

	Fluctuation float64 // amplitude of the display velocity swing
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Wrap normalizes an anomaly into [0,360).
func Wrap(anomaly float64) float64 {
	a := math.Mod(anomaly, 360)
	if a < 0 {
		a += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if a >= 360 {
		a = 0
	}
	return a
}

// SizeFactor returns the damping applied for an orbit of the given size.
func (p Params) SizeFactor(metric float64) float64 {
	if p.SizeRef == 0 {
		return 1
	}
	denom := metric + p.SizeOffset
	if denom <= 0 {
		return 1
	}
	f := p.SizeRef / denom
	if f < p.MinSizeFactor {
		f = p.MinSizeFactor
	}
	if p.BoostFactor > 0 && metric > p.BoostAbove {
		f *= p.BoostFactor
	}
	return f
}

// AngularSpeed returns degrees advanced per tick at the given position.
func (p Params) AngularSpeed(anomaly, metric float64) float64 {
	kepler := 1 + p.Kepler*math.Cos(Radians(anomaly))
	return p.BaseSpeed * kepler * p.SizeFactor(metric)
}

// DisplayVelocity is the non-authoritative speed shown to the player.
func (p Params) DisplayVelocity(anomaly, baseVelocity, deltaV float64) float64 {
	return baseVelocity + deltaV + p.Fluctuation*math.Cos(Radians(anomaly))
}
