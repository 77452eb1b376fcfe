package pipeline

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/doorway-data/headcount/internal/capture"
	"github.com/doorway-data/headcount/internal/detect"
	"github.com/doorway-data/headcount/internal/monitoring"
)

// Detector finds people in a frame.
type Detector interface {
	Detect(img gocv.Mat) ([]detect.Detection, error)
}

// DefaultFrameSkip processes every second frame.
const DefaultFrameSkip = 2

// DefaultStarvationTimeout bounds how long the loop waits for a frame
// before redisplaying the previous output.
const DefaultStarvationTimeout = 500 * time.Millisecond

// RunConfig wires the consumer loop.
type RunConfig struct {
	Slot     *capture.Slot
	Detector Detector

	// FrameSkip processes one frame in every FrameSkip. Values < 1 fall
	// back to the default. Skipped frames still advance the skip counter
	// but are never detected on; the previous output is shown instead.
	FrameSkip int

	// StarvationTimeout is how long Next waits before the loop gives up
	// on a fresh frame and redisplays the last output.
	StarvationTimeout time.Duration

	// Annotate draws the overlay onto the frame in place. May be nil.
	Annotate func(img *gocv.Mat, events []Event)

	// Display shows the annotated output. May be nil (headless).
	Display func(img gocv.Mat)
}

// Run consumes frames from the slot until the context is cancelled or
// the slot closes. It is the only goroutine touching the pipeline state.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) error {
	frameSkip := cfg.FrameSkip
	if frameSkip < 1 {
		frameSkip = DefaultFrameSkip
	}
	timeout := cfg.StarvationTimeout
	if timeout <= 0 {
		timeout = DefaultStarvationTimeout
	}

	// last holds the most recent annotated output so skipped and starved
	// iterations can redisplay it.
	last := gocv.NewMat()
	defer last.Close()

	var taken uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, open := cfg.Slot.Next(timeout)
		if !open {
			return nil
		}
		if frame == nil {
			// Source starvation. Keep the window alive with the previous
			// output instead of freezing or blanking it.
			p.redisplay(cfg, last)
			continue
		}

		taken++
		if taken%uint64(frameSkip) != 0 {
			frame.Mat.Close()
			p.redisplay(cfg, last)
			continue
		}

		detections, err := cfg.Detector.Detect(frame.Mat)
		if err != nil {
			monitoring.Logf("detector failed on frame %d: %v", frame.Seq, err)
			detections = nil
		}
		events := p.ProcessFrame(detections)

		if cfg.Annotate != nil {
			cfg.Annotate(&frame.Mat, events)
		}
		last.Close()
		last = frame.Mat
		if cfg.Display != nil {
			cfg.Display(last)
		}
	}
}

func (p *Pipeline) redisplay(cfg RunConfig, last gocv.Mat) {
	if cfg.Display != nil && !last.Empty() {
		cfg.Display(last)
	}
}
