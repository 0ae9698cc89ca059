// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"time"
)

// Monitor is the host's handle on a running watchdog. It hands out query
// handles, spawns host work on the watchdog pool, and blocks the caller
// until the supervisor exits.
type Monitor struct {
	pools        *Pools
	commands     chan command
	finished     chan struct{}
	drainTimeout time.Duration
}

// Control returns a query handle on the watchdog's command queue.
func (m *Monitor) Control() *Query {
	return &Query{commands: m.commands, finished: m.finished, pool: m.pools.Watchdog()}
}

// Pools exposes the watchdog's scheduling domains, for hosts that need to
// place their own work on a specific pool.
func (m *Monitor) Pools() *Pools { return m.pools }

// Spawn schedules a future on the watchdog's pool.
func (m *Monitor) Spawn(f func(ctx context.Context)) *Task {
	return m.pools.Watchdog().Spawn(f)
}

// WaitFinished blocks until the supervisor exits, then shuts the pools
// down, waiting up to the configured drain timeout for tasks to return.
func (m *Monitor) WaitFinished() {
	<-m.finished
	m.pools.shutdown(m.drainTimeout)
}
