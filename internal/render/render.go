// Package render draws the counting overlay onto output frames: the
// crossing line, per-person boxes and labels, the occupancy status block
// and the calibration mode markers.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/doorway-data/headcount/internal/calibration"
	"github.com/doorway-data/headcount/internal/track"
)

var (
	lineColor     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	footColor     = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	textColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	warnColor     = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	calMarkColor  = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	calBannerBack = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// State is everything the overlay shows for one frame.
type State struct {
	Live  map[int]*track.Identity
	LineY float64

	Entries      uint64
	Exits        uint64
	PeopleInside int64

	Calibration *calibration.Calibration
	Degraded    bool
	Camera      string
}

// Draw renders the overlay onto img in place.
func Draw(img *gocv.Mat, st State) {
	drawLine(img, st.LineY)
	for id, identity := range st.Live {
		drawIdentity(img, id, identity)
	}
	drawStatus(img, st)

	if st.Calibration != nil && st.Calibration.InMode() {
		drawCalibration(img, st.Calibration)
	}
}

func drawLine(img *gocv.Mat, lineY float64) {
	y := int(lineY)
	gocv.Line(img, image.Pt(0, y), image.Pt(img.Cols(), y), lineColor, 2)
}

func drawIdentity(img *gocv.Mat, id int, identity *track.Identity) {
	c := identity.Class.Color()
	box := image.Rect(
		int(identity.BBox.X1), int(identity.BBox.Y1),
		int(identity.BBox.X2), int(identity.BBox.Y2))
	gocv.Rectangle(img, box, c, 2)
	gocv.Circle(img, image.Pt(int(identity.FootPoint.X), int(identity.FootPoint.Y)), 4, footColor, -1)

	label := fmt.Sprintf("#%d %s", id, identity.Class)
	if identity.Calibrated {
		label = fmt.Sprintf("#%d %s %.1fcm", id, identity.Class, identity.HeightCm)
	}
	gocv.PutText(img, label,
		image.Pt(box.Min.X, box.Min.Y-6),
		gocv.FontHersheySimplex, 0.5, c, 1)
}

func drawStatus(img *gocv.Mat, st State) {
	status := fmt.Sprintf("%s  in: %d  out: %d  inside: %d  tracking: %d",
		st.Camera, st.Entries, st.Exits, st.PeopleInside, len(st.Live))
	if st.Calibration != nil {
		if snap, ok := st.Calibration.Snapshot(); ok {
			status += fmt.Sprintf("  %.3fcm/px", snap.Factor)
		}
	}
	gocv.PutText(img, status, image.Pt(10, 24), gocv.FontHersheySimplex, 0.6, textColor, 2)

	if st.Degraded {
		gocv.PutText(img, "STORAGE DEGRADED: events are being dropped",
			image.Pt(10, 48), gocv.FontHersheySimplex, 0.6, warnColor, 2)
	}
}

func drawCalibration(img *gocv.Mat, cal *calibration.Calibration) {
	// Banner across the top so the operator knows counting is paused.
	gocv.Rectangle(img, image.Rect(0, img.Rows()-40, img.Cols(), img.Rows()), calBannerBack, -1)

	top, bottom := cal.Points()
	prompt := fmt.Sprintf("CALIBRATION %.0fcm: click the TOP of the reference", cal.ReferenceCm())
	switch {
	case top != nil && bottom != nil:
		prompt = "CALIBRATION: press C to confirm, R to redo"
	case top != nil:
		prompt = fmt.Sprintf("CALIBRATION %.0fcm: click the BOTTOM of the reference", cal.ReferenceCm())
	}
	gocv.PutText(img, prompt, image.Pt(10, img.Rows()-14), gocv.FontHersheySimplex, 0.6, calMarkColor, 2)

	if top != nil {
		drawCross(img, int(top.X), int(top.Y))
	}
	if bottom != nil {
		drawCross(img, int(bottom.X), int(bottom.Y))
		if top != nil {
			gocv.Line(img, image.Pt(int(top.X), int(top.Y)),
				image.Pt(int(bottom.X), int(bottom.Y)), calMarkColor, 1)
		}
	}
}

func drawCross(img *gocv.Mat, x, y int) {
	const arm = 8
	gocv.Line(img, image.Pt(x-arm, y), image.Pt(x+arm, y), calMarkColor, 2)
	gocv.Line(img, image.Pt(x, y-arm), image.Pt(x, y+arm), calMarkColor, 2)
}
