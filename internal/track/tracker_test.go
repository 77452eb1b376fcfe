package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorway-data/headcount/internal/geometry"
)

// boxAt returns a 40x100 detection whose centroid sits at (x, y).
func boxAt(x, y float64) geometry.Rect {
	return geometry.NewRect(x-20, y-50, x+20, y+50)
}

func ids(live []*Identity) []int {
	out := make([]int, len(live))
	for i, identity := range live {
		out[i] = identity.ID
	}
	return out
}

func TestUpdateCreatesIdentities(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	live, retired := tr.Update([]geometry.Rect{boxAt(100, 100), boxAt(400, 100)})
	require.Len(t, live, 2)
	assert.Empty(t, retired)
	assert.Equal(t, []int{0, 1}, ids(live), "ids assigned in detection order")
}

func TestUpdateDerivesMeasurements(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	live, _ := tr.Update([]geometry.Rect{geometry.NewRect(100, 50, 140, 250)})
	require.Len(t, live, 1)
	identity := live[0]

	assert.Equal(t, geometry.Point{X: 120, Y: 150}, identity.Centroid)
	assert.Equal(t, geometry.Point{X: 120, Y: 250}, identity.FootPoint)
	assert.Equal(t, 200.0, identity.HeightPx)
	assert.Equal(t, 40.0, identity.WidthPx)
}

func TestUpdateBindsNearbyDetection(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	first, _ := tr.Update([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, first, 1)

	second, retired := tr.Update([]geometry.Rect{boxAt(130, 110)})
	require.Len(t, second, 1)
	assert.Empty(t, retired)
	assert.Equal(t, 0, second[0].ID, "moving within the radius keeps the identity")
	assert.Equal(t, geometry.Point{X: 130, Y: 110}, second[0].Centroid)
}

func TestUpdateBeyondThresholdCreatesNewID(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	tr.Update([]geometry.Rect{boxAt(100, 100)})
	live, retired := tr.Update([]geometry.Rect{boxAt(300, 100)})

	require.Len(t, live, 1)
	assert.Equal(t, 1, live[0].ID, "a jump beyond the radius starts a new identity")
	assert.Equal(t, []int{0}, retired)
}

func TestUpdateReturnsDetectionOrder(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	tr.Update([]geometry.Rect{boxAt(100, 100), boxAt(400, 100)})

	// The older identity's detection arrives second this frame; the
	// returned order must follow the detections, not ascending IDs.
	live, retired := tr.Update([]geometry.Rect{boxAt(410, 100), boxAt(110, 100)})
	require.Len(t, live, 2)
	assert.Empty(t, retired)
	assert.Equal(t, []int{1, 0}, ids(live))
}

func TestGreedyBindsToClosest(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	// Two identities, at distance 10 and 90 from the next detection.
	tr.Update([]geometry.Rect{boxAt(110, 100), boxAt(190, 100)})

	live, _ := tr.Update([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, live, 1)
	assert.Equal(t, 0, live[0].ID, "detection must bind to the distance-10 identity")
}

func TestGreedyTieBreaksToEarlierIdentity(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	// Both previous identities are exactly 50px from the detection.
	tr.Update([]geometry.Rect{boxAt(50, 100), boxAt(150, 100)})

	live, _ := tr.Update([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, live, 1)
	assert.Equal(t, 0, live[0].ID, "equidistant matches resolve to the earlier-created identity")
}

func TestEachIdentityClaimedOnce(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	tr.Update([]geometry.Rect{boxAt(100, 100)})

	// Two detections near the single previous identity: one binds, the
	// other must get a fresh ID even though it is also within the radius.
	live, _ := tr.Update([]geometry.Rect{boxAt(105, 100), boxAt(95, 100)})
	require.Len(t, live, 2)
	assert.Equal(t, []int{0, 1}, ids(live))
}

func TestIDsNeverReused(t *testing.T) {
	tr := NewTracker(GreedyAssigner{}, 100)

	tr.Update([]geometry.Rect{boxAt(100, 100)})
	tr.Update(nil) // identity 0 retired

	live, _ := tr.Update([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, live, 1)
	assert.Equal(t, 1, live[0].ID, "a re-detected person gets a fresh ID")
}

func TestSessionRetirementDiscardsCrossingState(t *testing.T) {
	session := NewSession(SessionConfig{LineY: 300, DistanceThreshold: 100, HistoryLen: 5})

	live := session.Track([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, live, 1)
	require.Equal(t, 0, live[0].ID)

	// Walk identity 0 across the line so it lands in the crossed set.
	session.Crossing.Observe(0, 280)
	session.Crossing.Observe(0, 285)
	mv, ok := session.Crossing.Observe(0, 320)
	require.True(t, ok)
	require.Equal(t, Entrance, mv)
	require.True(t, session.Crossing.HasCrossed(0))

	// One frame with no matching detection fully retires it.
	live = session.Track(nil)
	assert.Empty(t, live)
	assert.False(t, session.Crossing.HasCrossed(0))
	assert.Empty(t, session.Crossing.History(0))

	// Reappearance yields a new ID with a fresh crossing budget.
	live = session.Track([]geometry.Rect{boxAt(100, 100)})
	require.Len(t, live, 1)
	require.Equal(t, 1, live[0].ID)
	session.Crossing.Observe(1, 280)
	session.Crossing.Observe(1, 285)
	_, ok = session.Crossing.Observe(1, 320)
	assert.True(t, ok, "new identity has its own crossing budget")
}

func TestSessionDefaultsAssigner(t *testing.T) {
	session := NewSession(SessionConfig{LineY: 100})
	live := session.Track([]geometry.Rect{boxAt(50, 50)})
	assert.Len(t, live, 1)
}
