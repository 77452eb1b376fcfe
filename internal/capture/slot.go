// Package capture pulls frames from a video source into a single-slot
// latest-wins buffer. The producer overwrites any unconsumed frame, so
// the consumer always sees the freshest frame and lag never accumulates;
// under load frames are dropped, not queued.
package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured video frame.
type Frame struct {
	Mat    gocv.Mat
	Seq    uint64
	ReadAt time.Time
}

// Slot is the synchronised single-slot handoff between the capture
// producer and the pipeline consumer. Publish overwrites; Next blocks
// until a fresh frame arrives, the timeout expires, or the slot closes.
type Slot struct {
	mu   sync.Mutex
	cond *sync.Cond

	frame  *Frame
	closed bool

	// drops counts frames overwritten before the consumer took them.
	drops uint64
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Publish stores the frame, replacing any unconsumed one, and wakes the
// consumer. Publishing to a closed slot is a no-op.
func (s *Slot) Publish(f *Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		f.Mat.Close()
		return
	}
	if s.frame != nil {
		// Overwritten unconsumed: release its pixels now, the consumer
		// will never see it.
		s.frame.Mat.Close()
		s.drops++
	}
	s.frame = f
	s.cond.Signal()
}

// Next returns the latest unconsumed frame, blocking up to timeout for
// one to arrive. A nil frame with open=true means the timeout expired
// with no frame (source starvation); open=false means the slot is
// closed and the consumer should stop.
func (s *Slot) Next(timeout time.Duration) (frame *Frame, open bool) {
	deadline := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer deadline.Stop()

	expired := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for s.frame == nil && !s.closed && time.Now().Before(expired) {
		s.cond.Wait()
	}

	if s.frame != nil {
		frame = s.frame
		s.frame = nil
		return frame, true
	}
	return nil, !s.closed
}

// Close marks the slot closed and wakes any blocked consumer. Idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		s.frame.Mat.Close()
		s.frame = nil
	}
	s.closed = true
	s.cond.Broadcast()
}

// Drops returns how many frames were overwritten unconsumed.
func (s *Slot) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}
