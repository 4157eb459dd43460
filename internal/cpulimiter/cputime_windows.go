// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build windows

package cpulimiter

import (
	"time"

	"golang.org/x/sys/windows"
)

// osThreadClock samples the kernel+user time of a Windows thread via
// GetThreadTimes, mirroring the FILETIME summation the original C++
// builtin miner performs.
type osThreadClock struct {
	handle windows.Handle
}

// NewOSThreadClock returns a ThreadCpuClock that samples the CPU time of
// the given open thread handle for as long as the handle remains valid.
func NewOSThreadClock(handle windows.Handle) ThreadCpuClock {
	return &osThreadClock{handle: handle}
}

// CPUTime implements ThreadCpuClock.
func (c *osThreadClock) CPUTime() (time.Duration, error) {
	var createTime, exitTime, kernelTime, userTime windows.Filetime
	if err := windows.GetThreadTimes(c.handle, &createTime, &exitTime, &kernelTime, &userTime); err != nil {
		return 0, err
	}

	total := filetimeToUint64(kernelTime) + filetimeToUint64(userTime)
	// FILETIME ticks are 100-nanosecond intervals.
	return time.Duration(total) * 100 * time.Nanosecond, nil
}

func filetimeToUint64(ft windows.Filetime) uint64 {
	return uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
}

// CurrentThreadHandle returns a pseudo-handle for the calling thread
// suitable for passing to NewOSThreadClock. The caller must have called
// runtime.LockOSThread beforehand.
func CurrentThreadHandle() windows.Handle {
	return windows.CurrentThread()
}

// NewCurrentThreadClock returns a ThreadCpuClock for the calling OS thread.
// The caller must have called runtime.LockOSThread beforehand and must not
// unlock it while the clock remains registered with a CpuLimiter.
func NewCurrentThreadClock() ThreadCpuClock {
	return NewOSThreadClock(CurrentThreadHandle())
}
