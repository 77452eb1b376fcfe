// Package track assigns persistent identities to per-frame person
// detections and decides line crossings. All tracking state lives in a
// Session owned by the frame pipeline; nothing here is package-global.
package track

import (
	"sort"

	"github.com/doorway-data/headcount/internal/classify"
	"github.com/doorway-data/headcount/internal/geometry"
)

// DefaultDistanceThreshold is the default matching radius in pixels for
// binding a detection to a previous-frame identity.
const DefaultDistanceThreshold = 100.0

// Identity represents one physically tracked person across consecutive
// frames. Fields are refreshed in place every frame the person persists.
type Identity struct {
	// ID is unique and monotonically assigned; it is never reused within
	// a tracking session.
	ID int

	BBox      geometry.Rect
	Centroid  geometry.Point
	FootPoint geometry.Point
	HeightPx  float64
	WidthPx   float64

	// HeightCm is only meaningful when Calibrated is true.
	HeightCm   float64
	Calibrated bool
	Class      classify.Category
}

// Assigner matches current-frame detections to previous-frame identities.
// It returns one entry per detection: the index into previous of the
// matched identity, or -1 when the detection should start a new identity.
// Each previous identity may be claimed at most once.
type Assigner interface {
	Assign(detections []geometry.Rect, previous []*Identity, maxDistance float64) []int
}

// GreedyAssigner is a single-pass nearest-neighbour matcher. Detections
// are processed in the order received and each claims the closest
// still-unclaimed identity within the matching radius. The result depends
// on detection order and is not globally optimal; that behaviour is kept
// deliberately, and ties below the radius resolve to the earlier-created
// identity. A bipartite minimum-cost matcher can be substituted through
// the Assigner seam without touching the rest of the pipeline.
type GreedyAssigner struct{}

// Assign implements Assigner.
func (GreedyAssigner) Assign(detections []geometry.Rect, previous []*Identity, maxDistance float64) []int {
	assignments := make([]int, len(detections))
	claimed := make([]bool, len(previous))

	for di, det := range detections {
		center := det.Center()

		best := -1
		bestDist := maxDistance
		for pi, prev := range previous {
			if claimed[pi] {
				continue
			}
			if d := center.Distance(prev.Centroid); d < bestDist {
				bestDist = d
				best = pi
			}
		}

		assignments[di] = best
		if best >= 0 {
			claimed[best] = true
		}
	}

	return assignments
}

// Tracker maintains the set of live identities across frames.
type Tracker struct {
	identities map[int]*Identity
	nextID     int

	assigner          Assigner
	distanceThreshold float64
}

// NewTracker creates a tracker using the given assignment strategy and
// matching radius in pixels.
func NewTracker(assigner Assigner, distanceThreshold float64) *Tracker {
	if distanceThreshold <= 0 {
		distanceThreshold = DefaultDistanceThreshold
	}
	return &Tracker{
		identities:        make(map[int]*Identity),
		assigner:          assigner,
		distanceThreshold: distanceThreshold,
	}
}

// Update processes one frame of detections and returns the live
// identities in detection order, plus the IDs retired this frame. The
// returned order is what downstream event emission follows, so events
// within a frame come out in the order the detector reported them. An
// identity with no matching detection is retired immediately; there is no
// occlusion window, so a person who reappears after a missed frame gets a
// fresh ID.
func (t *Tracker) Update(detections []geometry.Rect) (live []*Identity, retired []int) {
	previous := t.ordered()
	assignments := t.assigner.Assign(detections, previous, t.distanceThreshold)

	live = make([]*Identity, 0, len(detections))
	byID := make(map[int]*Identity, len(detections))
	for di, det := range detections {
		var identity *Identity
		if pi := assignments[di]; pi >= 0 {
			identity = previous[pi]
		} else {
			identity = &Identity{ID: t.nextID}
			t.nextID++
		}

		identity.BBox = det
		identity.Centroid = det.Center()
		identity.FootPoint = det.FootPoint()
		identity.HeightPx = det.Height()
		identity.WidthPx = det.Width()
		live = append(live, identity)
		byID[identity.ID] = identity
	}

	for id := range t.identities {
		if _, ok := byID[id]; !ok {
			retired = append(retired, id)
		}
	}
	sort.Ints(retired)

	t.identities = byID
	return live, retired
}

// Live returns the identities from the most recent frame.
func (t *Tracker) Live() map[int]*Identity {
	return t.identities
}

// ordered returns live identities in creation order. IDs are monotonic,
// so ascending ID order is insertion order; this keeps assignment
// deterministic frame to frame.
func (t *Tracker) ordered() []*Identity {
	ids := make([]int, 0, len(t.identities))
	for id := range t.identities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]*Identity, len(ids))
	for i, id := range ids {
		out[i] = t.identities[id]
	}
	return out
}
