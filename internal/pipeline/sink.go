package pipeline

import (
	"time"

	"github.com/doorway-data/headcount/internal/calibration"
	"github.com/doorway-data/headcount/internal/db"
	"github.com/doorway-data/headcount/internal/monitoring"
)

// Sink receives confirmed events for persistence. Implementations must
// not block the frame loop indefinitely.
type Sink interface {
	RecordMovement(e Event) error
	RecordCalibration(snap calibration.Snapshot) error
}

// DBSink writes events to the counter database, stamping each record
// with the camera label and run session.
type DBSink struct {
	DB        *db.DB
	Camera    string
	SessionID string
}

// RecordMovement implements Sink.
func (s *DBSink) RecordMovement(e Event) error {
	return s.DB.RecordMovement(db.Movement{
		RecordedAt:     time.Now().UTC(),
		Kind:           string(e.Type),
		Camera:         s.Camera,
		HeightPx:       e.HeightPx,
		HeightCm:       e.HeightCm,
		Classification: string(e.Class),
		SessionID:      s.SessionID,
	})
}

// RecordCalibration implements Sink.
func (s *DBSink) RecordCalibration(snap calibration.Snapshot) error {
	return s.DB.RecordCalibration(db.CalibrationRecord{
		RecordedAt:  time.Now().UTC(),
		Camera:      s.Camera,
		ReferenceCm: snap.ReferenceCm,
		ReferencePx: snap.ReferencePx,
		Factor:      snap.Factor,
		SessionID:   s.SessionID,
	})
}

// RetrySink wraps a sink with a bounded retry budget per event. An event
// that still fails after the last attempt is dropped and counted; the
// counting pipeline is never stopped by storage trouble, but a run of
// consecutive drops past the threshold raises a degraded-storage warning
// in the log.
type RetrySink struct {
	next Sink

	attempts      int
	delay         time.Duration
	warnThreshold uint64

	// sleep is swappable so tests do not wait out real delays.
	sleep func(time.Duration)

	consecutiveDrops uint64
	totalDrops       uint64
	degraded         bool
}

// NewRetrySink wraps next with the given per-event retry budget.
func NewRetrySink(next Sink, attempts int, delay time.Duration, warnThreshold uint64) *RetrySink {
	if attempts < 1 {
		attempts = 1
	}
	return &RetrySink{
		next:          next,
		attempts:      attempts,
		delay:         delay,
		warnThreshold: warnThreshold,
		sleep:         time.Sleep,
	}
}

// RecordMovement implements Sink. It always returns nil; persistence
// failure is reported through the drop counters and the log, not to the
// frame loop.
func (s *RetrySink) RecordMovement(e Event) error {
	err := s.try(func() error { return s.next.RecordMovement(e) })
	if err == nil {
		if s.degraded {
			monitoring.Logf("storage recovered after %d dropped events", s.totalDrops)
		}
		s.consecutiveDrops = 0
		s.degraded = false
		return nil
	}

	s.consecutiveDrops++
	s.totalDrops++
	monitoring.Logf("dropping %s event after %d attempts: %v", e.Type, s.attempts, err)
	if s.consecutiveDrops > s.warnThreshold && !s.degraded {
		s.degraded = true
		monitoring.Logf("WARNING: storage degraded, %d consecutive events dropped", s.consecutiveDrops)
	}
	return nil
}

// RecordCalibration implements Sink with the same retry budget.
// Calibration records do not participate in the drop streak.
func (s *RetrySink) RecordCalibration(snap calibration.Snapshot) error {
	err := s.try(func() error { return s.next.RecordCalibration(snap) })
	if err != nil {
		monitoring.Logf("dropping calibration record after %d attempts: %v", s.attempts, err)
	}
	return nil
}

// Drops returns the total number of events dropped after exhausting the
// retry budget.
func (s *RetrySink) Drops() uint64 {
	return s.totalDrops
}

// Degraded reports whether the sink is currently in the degraded-storage
// state.
func (s *RetrySink) Degraded() bool {
	return s.degraded
}

func (s *RetrySink) try(op func() error) error {
	var err error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			s.sleep(s.delay)
		}
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}
