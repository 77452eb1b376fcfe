// Package pipeline turns per-frame person detections into movement
// events and occupancy counters. It owns the tracking session, the
// calibration state and the persistence sink; everything is per-instance
// state, created at startup and driven from the consumer goroutine.
package pipeline

import (
	"github.com/doorway-data/headcount/internal/calibration"
	"github.com/doorway-data/headcount/internal/classify"
	"github.com/doorway-data/headcount/internal/detect"
	"github.com/doorway-data/headcount/internal/geometry"
	"github.com/doorway-data/headcount/internal/track"
)

// Event is one confirmed line crossing, emitted at most once per
// identity lifetime.
type Event struct {
	Type     track.Movement
	Class    classify.Category
	HeightPx float64
	// HeightCm is nil when the event was produced uncalibrated.
	HeightCm *float64
}

// Counters are the pipeline-owned occupancy totals. The totals only ever
// grow; PeopleInside applies the same floor at zero as the database
// aggregate, so an exit with nobody inside never drives it negative.
type Counters struct {
	Entries      uint64
	Exits        uint64
	PeopleInside int64
}

// Config fixes the pipeline parameters at start.
type Config struct {
	// LineFraction positions the crossing line as a fraction of frame
	// height. The line is computed once in New and never recomputed.
	LineFraction float64
	FrameHeight  int

	MatchDistancePx float64
	HistoryLen      int
	MinConfidence   float64
	Thresholds      classify.Thresholds

	// Assigner overrides the matching strategy; nil selects greedy
	// nearest-neighbour.
	Assigner track.Assigner

	Sink Sink
}

// Pipeline processes one camera's frames.
type Pipeline struct {
	session    *track.Session
	cal        *calibration.Calibration
	classifier *classify.Classifier
	sink       Sink

	minConfidence float64
	counters      Counters
}

// New creates a pipeline for frames of the configured height.
func New(cfg Config) *Pipeline {
	cal := &calibration.Calibration{}
	return &Pipeline{
		session: track.NewSession(track.SessionConfig{
			LineY:             cfg.LineFraction * float64(cfg.FrameHeight),
			DistanceThreshold: cfg.MatchDistancePx,
			HistoryLen:        cfg.HistoryLen,
			Assigner:          cfg.Assigner,
		}),
		cal:           cal,
		classifier:    classify.NewClassifier(cal, cfg.Thresholds),
		sink:          cfg.Sink,
		minConfidence: cfg.MinConfidence,
	}
}

// ProcessFrame runs one frame's detections through tracking,
// classification and crossing detection, emits the resulting events to
// the sink, and updates the counters. While calibration mode is active,
// tracking continues but crossing detection and emission are suspended
// entirely.
//
// Events are returned in detection order within the frame. Sink failures
// are absorbed by the retrying sink; the events are still returned so
// the overlay can show them.
func (p *Pipeline) ProcessFrame(detections []detect.Detection) []Event {
	rects := detect.FilterConfident(detections, p.minConfidence)
	live := p.session.Track(rects)

	// Classification refreshes every frame so identities pick up a newly
	// confirmed calibration immediately.
	for _, identity := range live {
		cat, cm, ok := p.classifier.Classify(identity.HeightPx, identity.WidthPx)
		identity.Class = cat
		identity.HeightCm = cm
		identity.Calibrated = ok
	}

	if p.cal.InMode() {
		return nil
	}

	var events []Event
	for _, identity := range live {
		movement, ok := p.session.Crossing.Observe(identity.ID, identity.FootPoint.Y)
		if !ok {
			continue
		}

		event := Event{
			Type:     movement,
			Class:    identity.Class,
			HeightPx: identity.HeightPx,
		}
		if identity.Calibrated {
			cm := identity.HeightCm
			event.HeightCm = &cm
		}
		events = append(events, event)

		switch movement {
		case track.Entrance:
			p.counters.Entries++
			p.counters.PeopleInside++
		case track.Exit:
			p.counters.Exits++
			if p.counters.PeopleInside > 0 {
				p.counters.PeopleInside--
			}
		}

		if p.sink != nil {
			// Bounded retry happens inside the sink; an exhausted event
			// is dropped there, never blocking the frame loop beyond the
			// retry budget.
			p.sink.RecordMovement(event)
		}
	}
	return events
}

// StartCalibration enters calibration mode for a reference of the given
// real height. Counting is suspended until the calibration is confirmed
// or abandoned via a fresh StartCalibration.
func (p *Pipeline) StartCalibration(referenceCm float64) {
	p.cal.Begin(referenceCm)
}

// RecordCalibrationPoint forwards a user-marked pixel coordinate to the
// calibration unit. Ignored outside calibration mode.
func (p *Pipeline) RecordCalibrationPoint(x, y float64) {
	p.cal.RecordPoint(geometry.Point{X: x, Y: y})
}

// ConfirmCalibration finalises the calibration and persists it through
// the sink. The calibration error taxonomy (incomplete, degenerate)
// passes through unchanged so the caller can prompt the user.
func (p *Pipeline) ConfirmCalibration() error {
	if err := p.cal.Confirm(); err != nil {
		return err
	}
	if snap, ok := p.cal.Snapshot(); ok && p.sink != nil {
		p.sink.RecordCalibration(snap)
	}
	return nil
}

// ResetCalibration clears the pending calibration points.
func (p *Pipeline) ResetCalibration() {
	p.cal.Reset()
}

// Calibration exposes the calibration state for the overlay and API.
func (p *Pipeline) Calibration() *calibration.Calibration {
	return p.cal
}

// Counters returns the current occupancy totals.
func (p *Pipeline) Counters() Counters {
	return p.counters
}

// Live returns the identities of the most recent processed frame.
func (p *Pipeline) Live() map[int]*track.Identity {
	return p.session.Tracker.Live()
}

// LineY returns the fixed crossing line height in pixels.
func (p *Pipeline) LineY() float64 {
	return p.session.Crossing.LineY()
}
