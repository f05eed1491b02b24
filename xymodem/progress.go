package xymodem

import (
	"sync"
	"time"
)

// ProgressTracker turns the per-block Callbacks.Progress calls into
// periodic, rate-limited updates carrying a transfer rate, so a host
// doesn't have to compute one itself on every single block.
type ProgressTracker struct {
	mu sync.Mutex

	filename   string
	total      int64
	started    time.Time
	lastUpdate time.Time
	lastBytes  int64

	callback func(filename string, bytesSoFar, total int64, bytesPerSecond float64)
	interval time.Duration
}

// NewProgressTracker returns a tracker that calls callback at most once
// per interval (default 100ms if interval <= 0).
func NewProgressTracker(callback func(filename string, bytesSoFar, total int64, bytesPerSecond float64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &ProgressTracker{callback: callback, interval: interval}
}

// Start resets the tracker for a new file.
func (pt *ProgressTracker) Start(filename string, total int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.filename = filename
	pt.total = total
	pt.started = time.Now()
	pt.lastUpdate = pt.started
	pt.lastBytes = 0
}

// Update reports bytesSoFar, invoking the callback if enough time has
// passed since the last invocation.
func (pt *ProgressTracker) Update(bytesSoFar int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(pt.lastUpdate)
	if elapsed < pt.interval {
		return
	}

	var rate float64
	if elapsed.Seconds() > 0 {
		rate = float64(bytesSoFar-pt.lastBytes) / elapsed.Seconds()
	}
	if pt.callback != nil {
		pt.callback(pt.filename, bytesSoFar, pt.total, rate)
	}
	pt.lastUpdate = now
	pt.lastBytes = bytesSoFar
}

// Complete reports the final byte count and returns the transfer's total
// duration since Start.
func (pt *ProgressTracker) Complete(bytesSoFar int64) time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	duration := time.Since(pt.started)
	if pt.callback != nil {
		pt.callback(pt.filename, bytesSoFar, pt.total, 0)
	}
	return duration
}

// AsCallback adapts a ProgressTracker to the Callbacks.Progress signature.
func (pt *ProgressTracker) AsCallback() func(bytesSoFar, total int64) {
	return func(bytesSoFar, total int64) {
		pt.Update(bytesSoFar)
	}
}
