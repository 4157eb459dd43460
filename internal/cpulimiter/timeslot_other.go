// Copyright (c) 2025 The Lynx developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !windows

package cpulimiter

import "time"

// TimeSlot is the watcher's work/sleep control period.
const TimeSlot = 100 * time.Millisecond
