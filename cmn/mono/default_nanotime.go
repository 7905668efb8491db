//go:build !mono

// Package mono provides low-level monotonic time, used throughout the
// protocol engine and connection engine instead of repeated time.Now()
// calls (describe-protocol deadlines, heartbeat deadlines, reconnect
// backoff timestamps).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns a monotonic nanosecond counter. Values are only
// meaningful relative to each other within a process lifetime.
func NanoTime() int64 { return time.Since(start).Nanoseconds() }
