package track

import "github.com/doorway-data/headcount/internal/geometry"

// SessionConfig holds the tracking parameters fixed at session start.
type SessionConfig struct {
	// LineY is the crossing line height in pixels, computed once from the
	// frame height and never recomputed.
	LineY float64
	// DistanceThreshold is the identity matching radius in pixels.
	DistanceThreshold float64
	// HistoryLen is the per-identity foot-point sample window.
	HistoryLen int
	// Assigner selects the detection-to-identity matching strategy.
	// Defaults to GreedyAssigner.
	Assigner Assigner
}

// Session bundles the tracker and crossing detector state for one camera
// run. It is owned by the frame pipeline and passed into each component
// call; dropping the session drops all tracking state.
type Session struct {
	Tracker  *Tracker
	Crossing *CrossingDetector
}

// NewSession creates a tracking session from the given configuration.
func NewSession(cfg SessionConfig) *Session {
	assigner := cfg.Assigner
	if assigner == nil {
		assigner = GreedyAssigner{}
	}
	return &Session{
		Tracker:  NewTracker(assigner, cfg.DistanceThreshold),
		Crossing: NewCrossingDetector(cfg.LineY, cfg.HistoryLen),
	}
}

// Track runs identity assignment for one frame and atomically discards
// the crossing state of every identity retired by it. The returned
// identities are in detection order.
func (s *Session) Track(detections []geometry.Rect) []*Identity {
	live, retired := s.Tracker.Update(detections)
	for _, id := range retired {
		s.Crossing.Forget(id)
	}
	return live
}
