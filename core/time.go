// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "time"

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// StatsInterval is how often a frame rate is reported.
	// To disable, set to 0
	StatsInterval time.Duration
}

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	return &Time{
		interval: cfg.StatsInterval,
		now:      time.Now,
	}
}

// Time counts presented frames and reports the frame rate
// once per configured interval.
type Time struct {
	interval time.Duration
	now      func() time.Time

	windowStart time.Time
	frames      int
}

// Frame records a presented frame. When a full interval has elapsed
// it returns the frame rate over that interval and true.
func (t *Time) Frame() (float64, bool) {
	if t.interval <= 0 {
		return 0, false
	}

	now := t.now()
	if t.windowStart.IsZero() {
		t.windowStart = now
	}
	t.frames++

	elapsed := now.Sub(t.windowStart)
	if elapsed < t.interval {
		return 0, false
	}

	fps := float64(t.frames) / elapsed.Seconds()
	t.windowStart = now
	t.frames = 0
	return fps, true
}

// SetClock replaces the clock used by the service.
func (t *Time) SetClock(now func() time.Time) {
	t.now = now
}

// Interval returns the reporting interval, 0 when reporting is disabled.
func (t *Time) Interval() time.Duration {
	return t.interval
}
