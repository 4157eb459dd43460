// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build linux

package cpulimiter

import (
	"time"

	"golang.org/x/sys/unix"
)

// cpuclockPerThreadMask and cpuclockSched are the kernel's
// CPUCLOCK_PERTHREAD_MASK and CPUCLOCK_SCHED. Linux derives the clockid_t
// for a thread's private CPU-time clock from its tid using the same bit
// trick pthread_getcpuclockid uses internally:
// clockid = (~tid << 3) | CPUCLOCK_PERTHREAD_MASK | CPUCLOCK_SCHED.
const (
	cpuclockPerThreadMask = 4
	cpuclockSched         = 2
)

// osThreadClock samples CLOCK_THREAD_CPUTIME_ID-equivalent time for a
// specific Linux thread id via clock_gettime, the same syscall the
// original C++ builtin miner drives through pthread_getcpuclockid.
type osThreadClock struct {
	clockID int32
}

// NewOSThreadClock returns a ThreadCpuClock that samples the CPU time of
// the Linux thread identified by tid (as returned by unix.Gettid). The
// calling goroutine must have called runtime.LockOSThread so tid refers to
// a stable OS thread for the lifetime of the registration.
func NewOSThreadClock(tid int) ThreadCpuClock {
	return &osThreadClock{clockID: int32(^tid<<3) | cpuclockPerThreadMask | cpuclockSched}
}

// CPUTime implements ThreadCpuClock.
func (c *osThreadClock) CPUTime() (time.Duration, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(c.clockID, &ts); err != nil {
		return 0, err
	}
	return time.Duration(ts.Sec)*time.Second + time.Duration(ts.Nsec), nil
}

// CurrentThreadID returns the Linux thread id of the calling OS thread. The
// caller must have called runtime.LockOSThread beforehand.
func CurrentThreadID() int {
	return unix.Gettid()
}

// NewCurrentThreadClock returns a ThreadCpuClock for the calling OS thread.
// The caller must have called runtime.LockOSThread beforehand and must not
// unlock it while the clock remains registered with a CpuLimiter.
func NewCurrentThreadClock() ThreadCpuClock {
	return NewOSThreadClock(CurrentThreadID())
}
