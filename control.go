// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"sync"
)

// Control is a command from the supervisor to a running service's watcher.
type Control int

const (
	// ControlShutdown requests a graceful stop: the watcher marks the
	// status ShuttingDown and the service is expected to finish on its own.
	ControlShutdown Control = iota
	// ControlKill aborts the activation at its next suspension point.
	ControlKill
)

// String implements fmt.Stringer.
func (c Control) String() string {
	switch c {
	case ControlShutdown:
		return "shutdown"
	case ControlKill:
		return "kill"
	default:
		return "unknown"
	}
}

// controlCell is a single-slot latest-value channel from the supervisor to
// the watcher of the running activation. If several commands arrive before
// being consumed, Kill supersedes Shutdown; otherwise the newer value
// replaces the older.
type controlCell struct {
	mu     sync.Mutex
	value  Control
	filled bool
	closed bool
	notify chan struct{}
}

func newControlCell() *controlCell {
	return &controlCell{notify: make(chan struct{})}
}

// send writes a command into the slot and wakes the reader.
func (c *controlCell) send(cmd Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.filled && c.value == ControlKill {
		// Kill is terminal; nothing replaces it.
		return
	}
	c.value = cmd
	c.filled = true
	close(c.notify)
	c.notify = make(chan struct{})
}

// reset discards an unconsumed command. Called when a new activation is
// materialized: a command addressed to the previous, now Shutdown,
// activation must not leak into the new one.
func (c *controlCell) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filled = false
}

// close drops the writer side. Readers observe ok == false and must treat
// it as Kill: the supervisor has gone away.
func (c *controlCell) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.notify)
}

// controlReader is held by exactly one watcher for the span of one
// activation.
type controlReader struct {
	cell *controlCell
}

// poll consumes a pending command if one is present. When none is, it
// returns the channel to wait on for the next send, plus whether the
// writer side is already gone. The snapshot is taken under one lock so a
// command sent between poll and the select cannot be missed.
func (r *controlReader) poll() (cmd Control, ok bool, closed bool, notify <-chan struct{}) {
	r.cell.mu.Lock()
	defer r.cell.mu.Unlock()
	if r.cell.filled {
		cmd = r.cell.value
		r.cell.filled = false
		return cmd, true, false, nil
	}
	return 0, false, r.cell.closed, r.cell.notify
}

// updated suspends until a command is available, consumes it, and returns
// it. ok == false means the writer side is gone (equivalent to Kill) or ctx
// was canceled.
func (r *controlReader) updated(ctx context.Context) (Control, bool) {
	for {
		cmd, ok, closed, notify := r.poll()
		if ok {
			return cmd, true
		}
		if closed {
			return 0, false
		}

		select {
		case <-notify:
		case <-ctx.Done():
			return 0, false
		}
	}
}
