// Package cmn holds the module's read-mostly hot-path settings: a
// handful of frequently read timing values, pre-parsed on each Dial
// instead of re-resolving *config.Config on every task-runner and
// reader loop iteration.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"time"

	"github.com/feedcore/client/config"
)

type readMostly struct {
	timeout struct {
		heartbeatTimeout time.Duration
	}
	reestablish bool
}

// Rom is the process-wide read-mostly cache. It is safe for concurrent
// reads; Set runs once per Dial, never concurrently with itself.
var Rom readMostly

func init() {
	rom := config.Default()
	Rom.timeout.heartbeatTimeout = rom.Network.HeartbeatTimeout
	Rom.reestablish = rom.Network.ReestablishConnections
}

// Set refreshes the cache from a resolved Config, called by conn.Dial
// with the connection's Config so the task-runner and reader loops
// never dereference *config.Config themselves.
func (rom *readMostly) Set(cfg *config.Config) {
	rom.timeout.heartbeatTimeout = cfg.Network.HeartbeatTimeout
	rom.reestablish = cfg.Network.ReestablishConnections
}

func (rom *readMostly) HeartbeatTimeout() time.Duration { return rom.timeout.heartbeatTimeout }
func (rom *readMostly) ReestablishConnections() bool    { return rom.reestablish }
