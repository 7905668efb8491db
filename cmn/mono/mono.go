// Package mono provides low-level monotonic time, used throughout the
// protocol engine and connection engine instead of repeated time.Now()
// calls (describe-protocol deadlines, heartbeat deadlines, reconnect
// backoff timestamps).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// Since returns the duration elapsed since a NanoTime() reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }

// Expired reports whether a NanoTime() deadline has passed.
func Expired(deadline int64) bool { return NanoTime() >= deadline }
