// Package detect defines the object-detector boundary. The detector
// itself is a black box that produces per-frame person bounding boxes
// with confidences; the pipeline consumes only detections that survive
// the confidence filter.
package detect

import "github.com/doorway-data/headcount/internal/geometry"

// DefaultMinConfidence is the default confidence floor applied at the
// pipeline boundary.
const DefaultMinConfidence = 0.5

// Detection is one detector output for class "person".
type Detection struct {
	Rect       geometry.Rect
	Confidence float64
}

// FilterConfident returns the bounding boxes of detections above the
// confidence floor, in the order received. Malformed boxes (zero or
// negative area) are excluded; a bad detection costs one frame's
// candidate, nothing more.
func FilterConfident(detections []Detection, minConfidence float64) []geometry.Rect {
	rects := make([]geometry.Rect, 0, len(detections))
	for _, d := range detections {
		if d.Confidence <= minConfidence {
			continue
		}
		if !d.Rect.Valid() {
			continue
		}
		rects = append(rects, d.Rect)
	}
	return rects
}
