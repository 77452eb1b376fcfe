// Package config loads the counter's tuning parameters from JSON.
//
// Fields are pointer-typed so a partial config file only overrides the
// values it names; everything else keeps its default. Getters hide the
// pointer handling from callers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning holds every tunable parameter of the counting pipeline. The
// classification cutoffs are heuristics, not physical constants; adjust
// them per site.
type Tuning struct {
	// LineFraction places the crossing line as a fraction of frame height.
	LineFraction *float64 `json:"line_fraction,omitempty"`
	// MatchDistancePx is the identity matching radius in pixels.
	MatchDistancePx *float64 `json:"match_distance_px,omitempty"`
	// HistoryLen is the per-identity foot-point sample window.
	HistoryLen *int `json:"history_len,omitempty"`
	// FrameSkip fully processes every Nth frame; skipped frames redisplay
	// the last processed output.
	FrameSkip *int `json:"frame_skip,omitempty"`

	// Classifier params
	ChildMaxCm     *float64 `json:"child_max_cm,omitempty"`
	TeenMaxCm      *float64 `json:"teen_max_cm,omitempty"`
	WomanMinAspect *float64 `json:"woman_min_aspect,omitempty"`

	// MinConfidence filters detections at the detector boundary.
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Sink retry params
	SinkAttempts *int `json:"sink_attempts,omitempty"`
	// SinkRetryDelay is a duration string like "1s".
	SinkRetryDelay *string `json:"sink_retry_delay,omitempty"`
	// DropWarnThreshold is the consecutive-drop count that triggers a
	// degraded-mode warning.
	DropWarnThreshold *int `json:"drop_warn_threshold,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// DefaultTuning returns the stock parameters.
func DefaultTuning() *Tuning {
	return &Tuning{
		LineFraction:      ptrFloat64(0.7),
		MatchDistancePx:   ptrFloat64(100),
		HistoryLen:        ptrInt(5),
		FrameSkip:         ptrInt(2),
		ChildMaxCm:        ptrFloat64(110),
		TeenMaxCm:         ptrFloat64(150),
		WomanMinAspect:    ptrFloat64(2.8),
		MinConfidence:     ptrFloat64(0.5),
		SinkAttempts:      ptrInt(3),
		SinkRetryDelay:    ptrString("1s"),
		DropWarnThreshold: ptrInt(10),
	}
}

// LoadTuning reads a JSON tuning file and overlays it on the defaults.
// Fields omitted from the file retain their default values.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *Tuning) validate() error {
	if f := t.GetLineFraction(); f <= 0 || f >= 1 {
		return fmt.Errorf("line_fraction must be in (0, 1), got %v", f)
	}
	if d := t.GetMatchDistancePx(); d <= 0 {
		return fmt.Errorf("match_distance_px must be positive, got %v", d)
	}
	if n := t.GetHistoryLen(); n < 2 {
		return fmt.Errorf("history_len must be at least 2, got %d", n)
	}
	if n := t.GetFrameSkip(); n < 1 {
		return fmt.Errorf("frame_skip must be at least 1, got %d", n)
	}
	if c := t.GetMinConfidence(); c < 0 || c > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", c)
	}
	if _, err := time.ParseDuration(t.GetSinkRetryDelayRaw()); err != nil {
		return fmt.Errorf("invalid sink_retry_delay: %w", err)
	}
	return nil
}

// GetLineFraction returns the crossing line fraction, defaulting to 0.7.
func (t *Tuning) GetLineFraction() float64 {
	if t.LineFraction != nil {
		return *t.LineFraction
	}
	return 0.7
}

// GetMatchDistancePx returns the matching radius, defaulting to 100.
func (t *Tuning) GetMatchDistancePx() float64 {
	if t.MatchDistancePx != nil {
		return *t.MatchDistancePx
	}
	return 100
}

// GetHistoryLen returns the history window, defaulting to 5.
func (t *Tuning) GetHistoryLen() int {
	if t.HistoryLen != nil {
		return *t.HistoryLen
	}
	return 5
}

// GetFrameSkip returns the frame-skip factor, defaulting to 2.
func (t *Tuning) GetFrameSkip() int {
	if t.FrameSkip != nil {
		return *t.FrameSkip
	}
	return 2
}

// GetChildMaxCm returns the Child cutoff, defaulting to 110.
func (t *Tuning) GetChildMaxCm() float64 {
	if t.ChildMaxCm != nil {
		return *t.ChildMaxCm
	}
	return 110
}

// GetTeenMaxCm returns the Teen cutoff, defaulting to 150.
func (t *Tuning) GetTeenMaxCm() float64 {
	if t.TeenMaxCm != nil {
		return *t.TeenMaxCm
	}
	return 150
}

// GetWomanMinAspect returns the adult aspect split, defaulting to 2.8.
func (t *Tuning) GetWomanMinAspect() float64 {
	if t.WomanMinAspect != nil {
		return *t.WomanMinAspect
	}
	return 2.8
}

// GetMinConfidence returns the detection confidence floor, defaulting to 0.5.
func (t *Tuning) GetMinConfidence() float64 {
	if t.MinConfidence != nil {
		return *t.MinConfidence
	}
	return 0.5
}

// GetSinkAttempts returns the bounded retry count, defaulting to 3.
func (t *Tuning) GetSinkAttempts() int {
	if t.SinkAttempts != nil {
		return *t.SinkAttempts
	}
	return 3
}

// GetSinkRetryDelayRaw returns the retry spacing string, defaulting to "1s".
func (t *Tuning) GetSinkRetryDelayRaw() string {
	if t.SinkRetryDelay != nil {
		return *t.SinkRetryDelay
	}
	return "1s"
}

// GetSinkRetryDelay returns the parsed retry spacing. Invalid strings are
// rejected at load time; a struct literal with a bad value falls back to
// one second.
func (t *Tuning) GetSinkRetryDelay() time.Duration {
	d, err := time.ParseDuration(t.GetSinkRetryDelayRaw())
	if err != nil {
		return time.Second
	}
	return d
}

// GetDropWarnThreshold returns the degraded-mode threshold, defaulting to 10.
func (t *Tuning) GetDropWarnThreshold() int {
	if t.DropWarnThreshold != nil {
		return *t.DropWarnThreshold
	}
	return 10
}
