// pkg/orbit/window.go
package orbit

// Window is a burn window centered on perigee.
type Window struct {
	HalfWidth float64
}

// Contains reports whether the anomaly lies strictly inside the window.
func (w Window) Contains(anomaly float64) bool {
	a := Wrap(anomaly)
	return a > 360-w.HalfWidth || a < w.HalfWidth
}
