// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cpulimiter

import (
	"errors"
	"time"
)

// errUnsupportedPlatform is returned by ThreadCpuClock implementations on
// platforms where per-thread kernel+user CPU time cannot be sampled. It is
// non-fatal to the limiter: a worker whose clock always errors is simply
// skipped every sampling cycle. With no usable samples the watcher runs a
// fixed duty cycle of limit per TimeSlot, with no usage feedback, rather
// than crashing.
var errUnsupportedPlatform = errors.New("cpulimiter: per-thread CPU time sampling not supported on this platform")

// ThreadCpuClock samples the accumulated kernel+user CPU time consumed by a
// single OS thread since some unspecified epoch. Implementations must be
// safe to call repeatedly from the limiter's watcher goroutine, which runs
// on a different OS thread than the one being sampled.
//
// The concrete implementation is platform specific: cputime_linux.go reads
// a per-thread POSIX clock, cputime_windows.go sums the kernel and user
// FILETIME fields from GetThreadTimes, and cputime_other.go is the fallback
// for platforms with no such facility wired up yet.
type ThreadCpuClock interface {
	CPUTime() (time.Duration, error)
}

// ThreadID identifies a worker registered with a CpuLimiter. It is opaque
// to the limiter; callers typically use a small monotonically increasing
// counter or a goroutine-local worker index.
type ThreadID uint64
