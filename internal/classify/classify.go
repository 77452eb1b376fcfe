// Package classify buckets tracked people into coarse categories from
// their calibrated height and bounding-box aspect ratio.
//
// The bucketing is a deterministic heuristic with no accuracy guarantee:
// the height cutoffs and the adult aspect split are tunable parameters,
// not measured physical constants.
package classify

import (
	"image/color"

	"github.com/doorway-data/headcount/internal/calibration"
)

// Category is the bucket assigned to a tracked person.
type Category string

const (
	// Uncalibrated is reported whenever no calibration is active.
	Uncalibrated Category = "uncalibrated"
	Child        Category = "child"
	Teen         Category = "teen"
	Woman        Category = "woman"
	Man          Category = "man"
)

// Thresholds holds the tunable bucketing parameters.
type Thresholds struct {
	// ChildMaxCm is the exclusive upper height bound for Child.
	ChildMaxCm float64
	// TeenMaxCm is the exclusive upper height bound for Teen.
	TeenMaxCm float64
	// WomanMinAspect is the exclusive lower bound on height/width ratio
	// that splits adults into Woman over Man.
	WomanMinAspect float64
}

// DefaultThresholds returns the stock bucketing parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ChildMaxCm:     110,
		TeenMaxCm:      150,
		WomanMinAspect: 2.8,
	}
}

// Classifier converts pixel measurements to a category using the active
// calibration.
type Classifier struct {
	cal        *calibration.Calibration
	thresholds Thresholds
}

// NewClassifier creates a classifier bound to the given calibration.
func NewClassifier(cal *calibration.Calibration, thresholds Thresholds) *Classifier {
	return &Classifier{cal: cal, thresholds: thresholds}
}

// Classify buckets a detection by its pixel height and width. heightCm and
// ok are only meaningful when a calibration is active; without one the
// category is Uncalibrated.
func (c *Classifier) Classify(heightPx, widthPx float64) (cat Category, heightCm float64, ok bool) {
	heightCm, ok = c.cal.EstimateCm(heightPx)
	if !ok {
		return Uncalibrated, 0, false
	}

	switch {
	case heightCm < c.thresholds.ChildMaxCm:
		return Child, heightCm, true
	case heightCm < c.thresholds.TeenMaxCm:
		return Teen, heightCm, true
	}

	aspect := 0.0
	if widthPx > 0 {
		aspect = heightPx / widthPx
	}
	if aspect > c.thresholds.WomanMinAspect {
		return Woman, heightCm, true
	}
	return Man, heightCm, true
}

// Color returns the overlay colour for the category.
func (cat Category) Color() color.RGBA {
	switch cat {
	case Child:
		return color.RGBA{R: 0, G: 200, B: 255, A: 255}
	case Teen:
		return color.RGBA{R: 255, G: 200, B: 0, A: 255}
	case Woman:
		return color.RGBA{R: 255, G: 0, B: 255, A: 255}
	case Man:
		return color.RGBA{R: 0, G: 100, B: 255, A: 255}
	default:
		return color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
}
