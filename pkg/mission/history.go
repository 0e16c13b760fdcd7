// pkg/mission/history.go
package mission

// Snapshot is the state captured immediately before a discrete burn.
type Snapshot struct {
	StageIndex int
	Metric     float64
	Fuel       float64
}

// History holds at most one snapshot. It is a single level of undo, not a
// stack: recording replaces any previous snapshot.
type History struct {
	snap *Snapshot
}

// Record stores s, replacing any earlier snapshot.
func (h *History) Record(s Snapshot) {
	h.snap = &s
}

// Take returns the snapshot and clears it.
func (h *History) Take() (Snapshot, bool) {
	if h.snap == nil {
		return Snapshot{}, false
	}
	s := *h.snap
	h.snap = nil
	return s, true
}

// Available reports whether an undo is possible.
func (h *History) Available() bool {
	return h.snap != nil
}

// Clear drops the snapshot.
func (h *History) Clear() {
	h.snap = nil
}
