package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveNeedsTwoSamples(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	_, ok := d.Observe(1, 280)
	assert.False(t, ok, "a single sample is insufficient history")

	_, ok = d.Observe(1, 285)
	assert.False(t, ok, "no zone change yet")
}

func TestObserveEntrance(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	d.Observe(1, 280)
	d.Observe(1, 285)
	mv, ok := d.Observe(1, 320)

	require.True(t, ok)
	assert.Equal(t, Entrance, mv)
	assert.True(t, d.HasCrossed(1))
}

func TestObserveExit(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	d.Observe(2, 320)
	d.Observe(2, 315)
	mv, ok := d.Observe(2, 280)

	require.True(t, ok)
	assert.Equal(t, Exit, mv)
}

func TestSingleEventPerLifetime(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	d.Observe(1, 280)
	d.Observe(1, 285)
	_, ok := d.Observe(1, 320)
	require.True(t, ok)

	// Oscillate across the line repeatedly: never another event.
	for _, y := range []float64{280, 320, 280, 320, 290, 310} {
		_, ok := d.Observe(1, y)
		assert.False(t, ok, "crossed identities emit no further events")
	}
}

func TestForgetRestoresCrossingBudget(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	d.Observe(1, 280)
	d.Observe(1, 285)
	_, ok := d.Observe(1, 320)
	require.True(t, ok)

	d.Forget(1)
	assert.False(t, d.HasCrossed(1))
	assert.Empty(t, d.History(1))

	// The same numeric ID after Forget behaves like a fresh identity.
	d.Observe(1, 280)
	d.Observe(1, 285)
	mv, ok := d.Observe(1, 320)
	require.True(t, ok)
	assert.Equal(t, Entrance, mv)
}

func TestHistoryEviction(t *testing.T) {
	d := NewCrossingDetector(1000, 5)

	for _, y := range []float64{10, 20, 30, 40, 50, 60} {
		d.Observe(7, y)
	}

	got := d.History(7)
	require.Len(t, got, 5)
	assert.Equal(t, []float64{20, 30, 40, 50, 60}, got, "oldest sample evicted FIFO")
}

func TestInitialZoneAnchoredOnFirstTwoSamples(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	// First two samples sit above the line; the anchor zone stays Above
	// for as long as those samples remain in the window.
	d.Observe(3, 290)
	d.Observe(3, 296)
	mv, ok := d.Observe(3, 301)
	require.True(t, ok)
	assert.Equal(t, Entrance, mv)
}

func TestAnchorIsMeanNotSingleSample(t *testing.T) {
	// Samples 299 and 303 straddle the line but their mean (301) is below
	// it, so the identity counts as starting Below: a later move above
	// reads as an exit, not an entrance.
	d := NewCrossingDetector(300, 5)

	d.Observe(9, 299)
	d.Observe(9, 303)
	mv, ok := d.Observe(9, 295)
	require.True(t, ok)
	assert.Equal(t, Exit, mv)
}

func TestJitterAroundLineWithoutCommitment(t *testing.T) {
	d := NewCrossingDetector(300, 5)

	// Anchor starts below; brief jitter above and back does produce the
	// one exit event, then nothing further.
	d.Observe(4, 310)
	d.Observe(4, 308)
	mv, ok := d.Observe(4, 299)
	require.True(t, ok)
	assert.Equal(t, Exit, mv)

	_, ok = d.Observe(4, 305)
	assert.False(t, ok)
}

func TestSmallHistoryFallsBackToDefault(t *testing.T) {
	d := NewCrossingDetector(300, 1)
	for i := 0; i < 10; i++ {
		d.Observe(1, float64(200+i))
	}
	assert.Len(t, d.History(1), DefaultHistoryLen)
}
