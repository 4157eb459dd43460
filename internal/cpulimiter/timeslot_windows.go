// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build windows

package cpulimiter

import "time"

// TimeSlot is the watcher's work/sleep control period. Windows uses a
// coarser slot than POSIX because its default timer resolution (about
// 15.6ms) makes shorter periods unreliable to measure and schedule.
const TimeSlot = time.Second
