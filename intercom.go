// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultIntercomCapacity is the backing queue size of an intercom channel.
// It is deliberately small: the intercom is a coordination channel, not a
// buffering layer.
const DefaultIntercomCapacity = 10

// NoIntercom is the message type of services that take no intercom
// messages. Their receiver never yields a message; it only returns when the
// activation is being torn down.
type NoIntercom struct{}

// intercomCore is the shared state behind all sender clones and the single
// receiver of one activation's channel.
type intercomCore[M any] struct {
	ch    chan M
	stats *intercomStats

	// recvClosed is closed when the receiver is dropped; senders then
	// fail with ErrIntercomDisconnected.
	recvClosed  chan struct{}
	recvOnce    sync.Once
	sendersGone chan struct{}
	sendersOnce sync.Once
}

func (c *intercomCore[M]) closeReceiver() {
	c.recvOnce.Do(func() { close(c.recvClosed) })
}

func (c *intercomCore[M]) senderDropped() {
	if c.stats.dropConnection() == 0 {
		c.sendersOnce.Do(func() { close(c.sendersGone) })
	}
}

// newIntercom builds a fresh sender/receiver/stats triple. The returned
// sender counts as the channel's first connection; it is the one stored by
// the service manager and cloned for every intercom client.
func newIntercom[M any](service string, capacity int) (*Sender[M], *Receiver[M], *intercomStats) {
	if capacity <= 0 {
		capacity = DefaultIntercomCapacity
	}
	stats := newIntercomStats(service)
	core := &intercomCore[M]{
		ch:          make(chan M, capacity),
		stats:       stats,
		recvClosed:  make(chan struct{}),
		sendersGone: make(chan struct{}),
	}
	stats.addConnection()
	return &Sender[M]{core: core}, &Receiver[M]{core: core}, stats
}

// Sender is a cloneable producer handle into a service's intercom channel.
// Clones share the same backing queue. A Sender belongs to exactly one
// activation of the target service; after the target restarts, sends fail
// with ErrIntercomDisconnected and a fresh sender must be fetched.
type Sender[M any] struct {
	core   *intercomCore[M]
	closed atomic.Bool
}

// Clone returns a new sender sharing the same backing queue and increments
// the channel's connection count.
func (s *Sender[M]) Clone() *Sender[M] {
	s.core.stats.addConnection()
	return &Sender[M]{core: s.core}
}

// Close drops this sender clone. When the last clone is closed, the
// receiver's Recv returns ErrIntercomClosed once the queue drains.
func (s *Sender[M]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.core.senderDropped()
	}
}

// Send queues a message, suspending while the queue is full. It returns
// ErrIntercomDisconnected when the receiver is gone (the target finished or
// restarted), or ctx.Err() when ctx is canceled first. Each accepted
// message increments the channel's sent counter.
func (s *Sender[M]) Send(ctx context.Context, m M) error {
	select {
	case <-s.core.recvClosed:
		return ErrIntercomDisconnected
	default:
	}

	select {
	case s.core.ch <- m:
		s.core.stats.recordSent()
		return nil
	case <-s.core.recvClosed:
		return ErrIntercomDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receiver is the single consumer end of a service's intercom channel,
// owned by one activation for its whole span.
type Receiver[M any] struct {
	core *intercomCore[M]
}

// Recv returns the next message, suspending while the queue is empty. It
// returns ErrIntercomClosed when every sender clone has been closed and the
// queue is drained, or ctx.Err() when ctx is canceled first. Each delivery
// increments the received counter and feeds the processing-time statistics.
func (r *Receiver[M]) Recv(ctx context.Context) (M, error) {
	var zero M

	select {
	case m := <-r.core.ch:
		r.core.stats.recordReceived(time.Now())
		return m, nil
	default:
	}

	select {
	case m := <-r.core.ch:
		r.core.stats.recordReceived(time.Now())
		return m, nil
	case <-r.core.sendersGone:
		// Drain what was queued before the last sender left.
		select {
		case m := <-r.core.ch:
			r.core.stats.recordReceived(time.Now())
			return m, nil
		default:
			return zero, ErrIntercomClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close drops the receiver. Pending and future sends fail with
// ErrIntercomDisconnected. Called by the watcher when the activation ends.
func (r *Receiver[M]) Close() {
	r.core.closeReceiver()
}
