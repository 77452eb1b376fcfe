package track

import "gonum.org/v1/gonum/stat"

// DefaultHistoryLen is the default number of foot-point samples kept per
// identity for crossing decisions.
const DefaultHistoryLen = 5

// Movement is the direction of a confirmed line crossing.
type Movement string

const (
	// Entrance is a transition from above the line to below it.
	Entrance Movement = "entrance"
	// Exit is a transition from below the line to above it.
	Exit Movement = "exit"
)

type zone int

const (
	zoneAbove zone = iota
	zoneBelow
)

func zoneOf(y, lineY float64) zone {
	if y < lineY {
		return zoneAbove
	}
	return zoneBelow
}

// CrossingDetector decides, per identity, whether the configured
// horizontal line has been crossed, emitting at most one movement per
// identity lifetime.
type CrossingDetector struct {
	lineY      float64
	historyLen int

	history map[int][]float64
	crossed map[int]struct{}
}

// NewCrossingDetector creates a detector for the given line height in
// pixels. historyLen bounds the per-identity sample window; values < 2
// fall back to the default.
func NewCrossingDetector(lineY float64, historyLen int) *CrossingDetector {
	if historyLen < 2 {
		historyLen = DefaultHistoryLen
	}
	return &CrossingDetector{
		lineY:      lineY,
		historyLen: historyLen,
		history:    make(map[int][]float64),
		crossed:    make(map[int]struct{}),
	}
}

// Observe records an identity's current foot-point height and reports a
// movement if the identity has crossed the line. Called once per identity
// per processed frame.
//
// The "before" zone is anchored on the mean of the identity's first two
// recorded samples rather than a recent window, so single-frame jitter
// near the line cannot flap the decision. An identity that has already
// produced its movement never produces another, however often it
// oscillates, until it is retired and re-detected under a new ID.
func (d *CrossingDetector) Observe(id int, footY float64) (Movement, bool) {
	samples := append(d.history[id], footY)
	if len(samples) > d.historyLen {
		samples = samples[1:]
	}
	d.history[id] = samples

	if len(samples) < 2 {
		return "", false
	}

	now := zoneOf(footY, d.lineY)
	before := zoneOf(stat.Mean(samples[:2], nil), d.lineY)
	if now == before {
		return "", false
	}
	if _, done := d.crossed[id]; done {
		return "", false
	}

	d.crossed[id] = struct{}{}
	if before == zoneAbove {
		return Entrance, true
	}
	return Exit, true
}

// Forget discards an identity's history and crossing record. Called when
// the tracker retires the identity; a later re-detection starts with a
// fresh crossing budget.
func (d *CrossingDetector) Forget(id int) {
	delete(d.history, id)
	delete(d.crossed, id)
}

// LineY returns the configured crossing line height.
func (d *CrossingDetector) LineY() float64 {
	return d.lineY
}

// History returns a copy of the recorded samples for an identity.
func (d *CrossingDetector) History(id int) []float64 {
	samples := d.history[id]
	out := make([]float64, len(samples))
	copy(out, samples)
	return out
}

// HasCrossed reports whether the identity has already produced its
// movement.
func (d *CrossingDetector) HasCrossed(id int) bool {
	_, ok := d.crossed[id]
	return ok
}
