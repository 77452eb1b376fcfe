package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorway-data/headcount/internal/geometry"
)

func TestConfirmComputesExactFactor(t *testing.T) {
	// A 210cm door marked at y=50 and y=260 spans exactly 210px, so the
	// factor works out to 1.0 cm/px.
	var c Calibration
	c.Begin(210)
	c.RecordPoint(geometry.Point{X: 100, Y: 50})
	c.RecordPoint(geometry.Point{X: 100, Y: 260})

	require.NoError(t, c.Confirm())
	assert.True(t, c.Calibrated())
	assert.False(t, c.InMode())

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 210.0, snap.ReferencePx)
	assert.Equal(t, 1.0, snap.Factor)
}

func TestConfirmWithoutPoints(t *testing.T) {
	var c Calibration
	c.Begin(210)

	assert.ErrorIs(t, c.Confirm(), ErrIncomplete)
	assert.True(t, c.InMode())

	c.RecordPoint(geometry.Point{X: 10, Y: 20})
	assert.ErrorIs(t, c.Confirm(), ErrIncomplete)
	assert.False(t, c.Calibrated())
}

func TestConfirmDegenerateReference(t *testing.T) {
	var c Calibration
	c.Begin(210)
	c.RecordPoint(geometry.Point{X: 100, Y: 80})
	c.RecordPoint(geometry.Point{X: 300, Y: 80})

	assert.ErrorIs(t, c.Confirm(), ErrDegenerate)
	assert.False(t, c.Calibrated())
	assert.True(t, c.InMode())
}

func TestThirdPointIgnored(t *testing.T) {
	var c Calibration
	c.Begin(200)
	c.RecordPoint(geometry.Point{X: 0, Y: 10})
	c.RecordPoint(geometry.Point{X: 0, Y: 110})
	c.RecordPoint(geometry.Point{X: 0, Y: 500})

	top, bottom := c.Points()
	require.NotNil(t, top)
	require.NotNil(t, bottom)
	assert.Equal(t, 10.0, top.Y)
	assert.Equal(t, 110.0, bottom.Y)
}

func TestResetClearsPointsKeepsMode(t *testing.T) {
	var c Calibration
	c.Begin(210)
	c.RecordPoint(geometry.Point{X: 5, Y: 5})
	c.Reset()

	top, bottom := c.Points()
	assert.Nil(t, top)
	assert.Nil(t, bottom)
	assert.True(t, c.InMode())
}

func TestEstimateCm(t *testing.T) {
	var c Calibration

	_, ok := c.EstimateCm(180)
	assert.False(t, ok, "uncalibrated estimate should report not ok")

	c.Begin(210)
	c.RecordPoint(geometry.Point{X: 100, Y: 50})
	c.RecordPoint(geometry.Point{X: 100, Y: 260})
	require.NoError(t, c.Confirm())

	cm, ok := c.EstimateCm(172)
	require.True(t, ok)
	assert.Equal(t, 172.0, cm)

	// Linearity: doubling the pixel height doubles the estimate.
	double, ok := c.EstimateCm(344)
	require.True(t, ok)
	assert.Equal(t, 2*cm, double)
}

func TestEstimateRoundsToOneDecimal(t *testing.T) {
	var c Calibration
	c.Begin(100)
	c.RecordPoint(geometry.Point{X: 0, Y: 0})
	c.RecordPoint(geometry.Point{X: 0, Y: 300})
	require.NoError(t, c.Confirm())

	// 100/300 cm per px: 250px -> 83.333... -> 83.3
	cm, ok := c.EstimateCm(250)
	require.True(t, ok)
	assert.Equal(t, 83.3, cm)
}

func TestRecalibrationReplacesFactor(t *testing.T) {
	var c Calibration
	c.Begin(210)
	c.RecordPoint(geometry.Point{X: 0, Y: 0})
	c.RecordPoint(geometry.Point{X: 0, Y: 210})
	require.NoError(t, c.Confirm())

	c.Begin(200)
	assert.True(t, c.InMode())
	c.RecordPoint(geometry.Point{X: 0, Y: 0})
	c.RecordPoint(geometry.Point{X: 0, Y: 100})
	require.NoError(t, c.Confirm())

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 2.0, snap.Factor)
	assert.Equal(t, 100.0, snap.ReferencePx)
}
