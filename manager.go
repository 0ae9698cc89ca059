// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/kennel/internal/metrics"
)

// StatusReport is the answer to a status query: the service's identifier,
// its current status, a snapshot of its intercom statistics, and the number
// of times it has been (re)started.
type StatusReport struct {
	Identifier string         `json:"identifier"`
	Status     Status         `json:"status"`
	Intercom   IntercomStatus `json:"intercom"`
	Restarts   uint64         `json:"restarts"`
}

// String renders the report as JSON.
func (r StatusReport) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return r.Identifier
	}
	return string(b)
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	intercomCapacity int
}

// WithIntercomCapacity overrides the capacity of the service's intercom
// channel. The default is DefaultIntercomCapacity.
func WithIntercomCapacity(n int) ManagerOption {
	return func(o *managerOptions) { o.intercomCapacity = n }
}

// Manager is the durable bookkeeping of one declared service. It lives as
// long as the aggregate and survives restarts: the status cell, control
// cell, and restart count persist while the intercom sender and statistics
// are replaced on every activation.
//
// A Manager's mutable fields are touched only by the supervisor goroutine;
// the handles it gives out (sender clones, status readers) are internally
// synchronized.
type Manager[M any] struct {
	key     Key[M]
	prepare Prepare[M]
	pool    *Pool
	opts    managerOptions

	sender   *Sender[M]
	stats    *intercomStats
	status   *statusCell
	control  *controlCell
	restarts uint64
}

// NewManager constructs the manager for one service: status Shutdown,
// restart count zero, a fresh sender/receiver pair, and an empty control
// cell. The service's tasks will be scheduled on pool.
func NewManager[M any](key Key[M], prepare Prepare[M], pool *Pool, opts ...ManagerOption) *Manager[M] {
	o := managerOptions{intercomCapacity: DefaultIntercomCapacity}
	for _, opt := range opts {
		opt(&o)
	}

	sender, _, stats := newIntercom[M](key.Name(), o.intercomCapacity)
	return &Manager[M]{
		key:     key,
		prepare: prepare,
		pool:    pool,
		opts:    o,
		sender:  sender,
		stats:   stats,
		status:  newStatusCell(statusNow(StatusShutdown)),
		control: newControlCell(),
	}
}

// Identifier returns the service's identifier.
func (m *Manager[M]) Identifier() string { return m.key.Name() }

// Intercom clones the current sender into the service's intercom channel.
// The clone belongs to the current activation; after a restart it reports
// ErrIntercomDisconnected.
func (m *Manager[M]) Intercom() *Sender[M] {
	return m.sender.Clone()
}

// StatusReader returns a reader over the service's status. The reader is
// never replaced and remains valid across restarts.
func (m *Manager[M]) StatusReader() *StatusReader {
	return &StatusReader{cell: m.status}
}

// Status snapshots the service's status report. It never waits for state
// changes.
func (m *Manager[M]) Status(_ context.Context) StatusReport {
	return StatusReport{
		Identifier: m.key.Name(),
		Status:     m.StatusReader().Current(),
		Intercom:   m.stats.snapshot(),
		Restarts:   m.restarts,
	}
}

// Shutdown requests a graceful stop. If the service is Starting or Started
// the control cell receives Shutdown; otherwise the call is a no-op, so a
// command can never reach an activation that does not exist.
func (m *Manager[M]) Shutdown() {
	switch m.StatusReader().Current().Kind {
	case StatusStarting, StatusStarted:
		m.control.send(ControlShutdown)
	case StatusShutdown, StatusShuttingDown:
		// Already stopping or stopped; nothing to tell the watcher.
	}
}

// runtime materializes one activation. It fails with CannotStartError
// unless the status is Shutdown; otherwise it allocates a fresh
// sender/receiver/stats triple, replaces the stored pair atomically (the
// supervisor is the only mutator), increments the restart count, and
// returns the runtime bundling the receiver, status writer, and control
// reader.
func (m *Manager[M]) runtime(q *Query) (*serviceRuntime[M], error) {
	status := m.StatusReader().Current()
	if !status.IsShutdown() {
		return nil, &CannotStartError{Status: status}
	}

	sender, receiver, stats := newIntercom[M](m.key.Name(), m.opts.intercomCapacity)
	m.sender.Close()
	m.sender = sender
	m.stats = stats
	m.restarts++
	metrics.ServiceRestarts.WithLabelValues(m.key.Name()).Inc()

	// A command left over from the previous activation is coalesced away:
	// it was addressed to a service that is now Shutdown.
	m.control.reset()

	return &serviceRuntime[M]{
		state: &State[M]{
			identifier: m.key.Name(),
			pool:       m.pool,
			receiver:   receiver,
			query:      q,
			status:     m.StatusReader(),
		},
		prepare:      m.prepare,
		status:       &statusWriter{cell: m.status},
		control:      &controlReader{cell: m.control},
		watchdogPool: q.pool,
	}, nil
}

// Close tears the manager down. If the service is not Shutdown the control
// cell receives Kill, then both cells are closed so readers observe the
// writer side going away.
func (m *Manager[M]) Close() {
	if !m.StatusReader().Current().IsShutdown() {
		m.control.send(ControlKill)
	}
	m.control.close()
	m.status.close()
}
