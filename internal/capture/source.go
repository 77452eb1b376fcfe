package capture

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// Source yields raw frames. Read reports false when no frame is
// available; that is not fatal, the producer simply tries again.
type Source interface {
	Read(dst *gocv.Mat) bool
	Close() error
}

// VideoSource wraps a gocv capture device or stream URL.
type VideoSource struct {
	capture *gocv.VideoCapture
}

// OpenVideo opens a capture source. src may be a device index ("0"), a
// file path, or an RTSP/HTTP URL.
func OpenVideo(src string) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %q: %w", src, err)
	}
	// Keep the device-side buffer minimal; the Slot handles freshness.
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	return &VideoSource{capture: capture}, nil
}

// Read implements Source.
func (v *VideoSource) Read(dst *gocv.Mat) bool {
	return v.capture.Read(dst)
}

// Close releases the capture device.
func (v *VideoSource) Close() error {
	return v.capture.Close()
}

// Pump continuously reads frames from src into slot until ctx is
// cancelled, then closes the slot and releases the source. Run it on its
// own goroutine; it is the only writer of the slot.
func Pump(ctx context.Context, src Source, slot *Slot) {
	defer slot.Close()
	defer src.Close()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		mat := gocv.NewMat()
		if !src.Read(&mat) {
			mat.Close()
			// No frame from the source; back off briefly rather than
			// spinning. The source is never reopened from here.
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		seq++
		slot.Publish(&Frame{Mat: mat, Seq: seq, ReadAt: time.Now()})
	}
}
