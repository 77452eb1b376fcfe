// Package calibration derives a pixel-to-centimetre conversion factor from
// two user-marked points on a reference object of known real height, such
// as a door frame. One calibration is active at a time; confirming a new
// one replaces the previous factor wholesale.
package calibration

import (
	"errors"
	"math"

	"github.com/doorway-data/headcount/internal/geometry"
)

var (
	// ErrIncomplete is returned by Confirm when fewer than two reference
	// points have been recorded. The user marks the missing point and
	// retries.
	ErrIncomplete = errors.New("calibration: both reference points must be recorded before confirming")

	// ErrDegenerate is returned by Confirm when the two points have the
	// same vertical coordinate, which would produce a zero-pixel
	// reference. The user resets and marks the points again.
	ErrDegenerate = errors.New("calibration: reference points have zero vertical separation")
)

// Snapshot is a read-only view of a confirmed calibration, used by the
// persistence sink, the status API and the overlay.
type Snapshot struct {
	ReferenceCm float64 `json:"reference_cm"`
	ReferencePx float64 `json:"reference_px"`
	Factor      float64 `json:"factor_cm_per_px"`
}

// Calibration holds calibration mode state and the active conversion
// factor. The zero value is uncalibrated and not in calibration mode.
// It is driven from a single goroutine (the pipeline consumer loop).
type Calibration struct {
	referenceCm float64
	referencePx float64
	factor      float64
	calibrated  bool

	inMode bool
	top    *geometry.Point
	bottom *geometry.Point
}

// Begin enters calibration mode for a reference of the given real height
// in centimetres and clears any pending points. A non-positive height is
// ignored.
func (c *Calibration) Begin(referenceCm float64) {
	if referenceCm <= 0 {
		return
	}
	c.referenceCm = referenceCm
	c.inMode = true
	c.top = nil
	c.bottom = nil
}

// RecordPoint records a reference point while in calibration mode. The
// first call sets the top of the reference, the second the bottom. Further
// calls are ignored until Reset.
func (c *Calibration) RecordPoint(p geometry.Point) {
	if !c.inMode {
		return
	}
	switch {
	case c.top == nil:
		c.top = &p
	case c.bottom == nil:
		c.bottom = &p
	}
}

// Confirm computes the conversion factor from the two recorded points and
// leaves calibration mode. On error the mode and points are untouched so
// the user can correct and retry.
func (c *Calibration) Confirm() error {
	if c.top == nil || c.bottom == nil {
		return ErrIncomplete
	}

	referencePx := math.Abs(c.bottom.Y - c.top.Y)
	if referencePx == 0 {
		return ErrDegenerate
	}

	c.referencePx = referencePx
	c.factor = c.referenceCm / referencePx
	c.calibrated = true
	c.inMode = false
	return nil
}

// Reset clears both pending points but stays in calibration mode.
func (c *Calibration) Reset() {
	c.top = nil
	c.bottom = nil
}

// EstimateCm converts a pixel height to an estimated real height in
// centimetres, rounded to one decimal place. ok is false when no
// calibration is active.
func (c *Calibration) EstimateCm(heightPx float64) (cm float64, ok bool) {
	if !c.calibrated {
		return 0, false
	}
	return math.Round(heightPx*c.factor*10) / 10, true
}

// Calibrated reports whether a confirmed calibration is active.
func (c *Calibration) Calibrated() bool {
	return c.calibrated
}

// InMode reports whether calibration mode is active. While it is, the
// pipeline suspends crossing detection and event emission.
func (c *Calibration) InMode() bool {
	return c.inMode
}

// Points returns the pending top and bottom reference points, either of
// which may be nil. Used by the overlay to draw calibration progress.
func (c *Calibration) Points() (top, bottom *geometry.Point) {
	return c.top, c.bottom
}

// ReferenceCm returns the real reference height the current calibration
// mode was started with.
func (c *Calibration) ReferenceCm() float64 {
	return c.referenceCm
}

// Snapshot returns the confirmed calibration values. ok is false when not
// calibrated.
func (c *Calibration) Snapshot() (Snapshot, bool) {
	if !c.calibrated {
		return Snapshot{}, false
	}
	return Snapshot{
		ReferenceCm: c.referenceCm,
		ReferencePx: c.referencePx,
		Factor:      c.factor,
	}, true
}
