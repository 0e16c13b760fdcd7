// pkg/orbit/integrator.go
package orbit

// Step is the result of advancing the orbit by one tick.
type Step struct {
	Anomaly  float64
	Speed    float64
	InWindow bool
	// Captured is set when a warp ended on this tick. The anomaly is then
	// exactly Perigee.
	Captured bool
}

// Integrator advances the orbital position one tick at a time. It holds no
// state; the same inputs always produce the same Step.
type Integrator struct {
	Params Params
	Window Window
}

// NewIntegrator creates an integrator for the given parameters and window.
func NewIntegrator(params Params, window Window) Integrator {
	return Integrator{Params: params, Window: window}
}

// Advance moves the craft from anomaly by one tick. metric is the orbit size
// used for damping. While warping the speed is constant and the warp is
// captured as soon as the next position enters the capture band.
func (in Integrator) Advance(anomaly, metric float64, warping bool) Step {
	speed := in.Params.AngularSpeed(anomaly, metric)
	if warping {
		speed = in.Params.WarpSpeed
	}
	next := Wrap(anomaly + speed)

	if warping && in.captureWindow().Contains(next) {
		return Step{Anomaly: Perigee, Speed: speed, InWindow: in.Window.Contains(Perigee), Captured: true}
	}
	return Step{Anomaly: next, Speed: speed, InWindow: in.Window.Contains(next)}
}

func (in Integrator) captureWindow() Window {
	if in.Params.WarpCapture > 0 {
		return Window{HalfWidth: in.Params.WarpCapture}
	}
	return in.Window
}
