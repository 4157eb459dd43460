// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !linux && !windows

package cpulimiter

import "time"

// osThreadClock is the fallback used on platforms this package has no
// per-thread CPU-time accounting wired up for yet. Every sample fails,
// which the watcher treats the same as any other transient read failure:
// the worker's baseline is reset and it is skipped for that cycle.
type osThreadClock struct{}

// NewOSThreadClock returns a ThreadCpuClock stub for unsupported platforms.
func NewOSThreadClock() ThreadCpuClock {
	return &osThreadClock{}
}

// NewCurrentThreadClock returns a ThreadCpuClock stub for unsupported
// platforms; every sample fails with errUnsupportedPlatform.
func NewCurrentThreadClock() ThreadCpuClock {
	return NewOSThreadClock()
}

// CPUTime implements ThreadCpuClock.
func (c *osThreadClock) CPUTime() (time.Duration, error) {
	return 0, errUnsupportedPlatform
}
