package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/doorway-data/headcount/internal/geometry"
	"github.com/doorway-data/headcount/internal/monitoring"
)

const (
	// yoloInputSize is the square network input in pixels.
	yoloInputSize = 640

	// personClassID is the COCO class index for "person".
	personClassID = 0

	defaultNMSThreshold   = 0.45
	defaultScoreThreshold = 0.25
)

// YOLODetector runs an ONNX YOLO model through the OpenCV DNN module and
// keeps only person detections. It is not safe for concurrent use; the
// consumer loop is its only caller.
type YOLODetector struct {
	net gocv.Net

	scoreThreshold float32
	nmsThreshold   float32
}

// NewYOLODetector loads the ONNX model at path. Pass preferGPU to ask
// OpenCV for a CUDA backend; loading falls back to CPU silently when the
// build has no CUDA support.
func NewYOLODetector(modelPath string, preferGPU bool) (*YOLODetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load detection model %q", modelPath)
	}

	if preferGPU {
		if err := net.SetPreferableBackend(gocv.NetBackendCUDA); err != nil {
			monitoring.Logf("CUDA backend unavailable, using CPU: %v", err)
		} else if err := net.SetPreferableTarget(gocv.NetTargetCUDA); err != nil {
			monitoring.Logf("CUDA target unavailable, using CPU: %v", err)
		}
	}

	return &YOLODetector{
		net:            net,
		scoreThreshold: defaultScoreThreshold,
		nmsThreshold:   defaultNMSThreshold,
	}, nil
}

// Detect runs one inference pass and returns the person boxes in the
// frame's pixel coordinates. The per-box confidences are raw model
// scores; the pipeline applies its own acceptance floor on top.
func (d *YOLODetector) Detect(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0,
		image.Pt(yoloInputSize, yoloInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	return d.decode(prob, img.Cols(), img.Rows())
}

// decode converts the raw [1 x (4+classes) x anchors] output tensor into
// person detections scaled back to the source frame.
func (d *YOLODetector) decode(prob gocv.Mat, frameW, frameH int) ([]Detection, error) {
	dims := prob.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}

	// Rows become anchors after the transpose, columns become
	// cx, cy, w, h followed by the per-class scores.
	flat := prob.Reshape(1, dims[1])
	defer flat.Close()
	anchors := gocv.NewMat()
	defer anchors.Close()
	gocv.Transpose(flat, &anchors)

	scaleX := float32(frameW) / float32(yoloInputSize)
	scaleY := float32(frameH) / float32(yoloInputSize)

	var boxes []image.Rectangle
	var scores []float32
	for i := 0; i < anchors.Rows(); i++ {
		score := anchors.GetFloatAt(i, 4+personClassID)
		if score < d.scoreThreshold {
			continue
		}

		cx := anchors.GetFloatAt(i, 0) * scaleX
		cy := anchors.GetFloatAt(i, 1) * scaleY
		w := anchors.GetFloatAt(i, 2) * scaleX
		h := anchors.GetFloatAt(i, 3) * scaleY

		boxes = append(boxes, image.Rect(
			clamp(int(cx-w/2), 0, frameW),
			clamp(int(cy-h/2), 0, frameH),
			clamp(int(cx+w/2), 0, frameW),
			clamp(int(cy+h/2), 0, frameH),
		))
		scores = append(scores, score)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, d.scoreThreshold, d.nmsThreshold)
	detections := make([]Detection, 0, len(keep))
	for _, idx := range keep {
		b := boxes[idx]
		detections = append(detections, Detection{
			Rect: geometry.NewRect(
				float64(b.Min.X), float64(b.Min.Y),
				float64(b.Max.X), float64(b.Max.Y)),
			Confidence: float64(scores[idx]),
		})
	}
	return detections, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
