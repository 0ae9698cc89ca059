// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/kennel/internal/logging"
)

// Query is a client of the watchdog's command queue. It is held by external
// code (via Monitor.Control) and by every service (via State.Watchdog), and
// is what services use to reach one another. Queries are freely shareable;
// the underlying queue has many producers and exactly one consumer.
type Query struct {
	commands chan<- command
	finished <-chan struct{}
	pool     *Pool
}

// post enqueues a command without waiting for an answer. It reports false
// when the watchdog is gone or ctx is canceled first.
func (q *Query) post(ctx context.Context, cmd command) bool {
	select {
	case q.commands <- cmd:
		return true
	case <-q.finished:
		return false
	case <-ctx.Done():
		return false
	}
}

// roundTrip posts a command with a one-shot reply slot and awaits the
// answer. Failure to enqueue or to receive a reply surfaces as
// NoReplyError with the given context string.
func (q *Query) roundTrip(ctx context.Context, cmd command, queryContext string) (commandReply, error) {
	reply := make(chan commandReply, 1)
	cmd.reply = reply

	if !q.post(ctx, cmd) {
		return commandReply{}, &NoReplyError{Context: queryContext}
	}

	select {
	case r := <-reply:
		return r, nil
	case <-q.finished:
		// The watchdog may have answered just before exiting.
		select {
		case r := <-reply:
			return r, nil
		default:
			return commandReply{}, &NoReplyError{Context: queryContext}
		}
	case <-ctx.Done():
		return commandReply{}, &NoReplyError{Context: queryContext}
	}
}

// Status queries the status report of the named service.
func (q *Query) Status(ctx context.Context, name string) (StatusReport, error) {
	r, err := q.roundTrip(ctx, command{kind: cmdStatus, name: name}, "status query")
	if err != nil {
		return StatusReport{}, err
	}
	if r.err != nil {
		return StatusReport{}, r.err
	}
	return r.report, nil
}

// Start requires the watchdog to start the named service if not already
// started.
func (q *Query) Start(ctx context.Context, name string) error {
	r, err := q.roundTrip(ctx, command{kind: cmdStart, name: name}, "start query")
	if err != nil {
		return err
	}
	return r.err
}

// Stop requires the watchdog to stop the named service if not already
// stopped.
func (q *Query) Stop(ctx context.Context, name string) error {
	r, err := q.roundTrip(ctx, command{kind: cmdStop, name: name}, "stop query")
	if err != nil {
		return err
	}
	return r.err
}

// intercom fetches the named service's current boxed sender.
func (q *Query) intercom(ctx context.Context, name string) (any, error) {
	r, err := q.roundTrip(ctx, command{kind: cmdIntercom, name: name}, "intercom query")
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.sender, nil
}

// Shutdown posts a stop of the whole watchdog, without waiting for a
// reply. The supervisor handles it like Kill: its loop exits and every
// service still running receives Kill.
func (q *Query) Shutdown(ctx context.Context) {
	q.post(ctx, command{kind: cmdShutdown})
}

// Kill posts an immediate stop of the whole watchdog, without waiting for
// a reply.
func (q *Query) Kill(ctx context.Context) {
	q.post(ctx, command{kind: cmdKill})
}

// Spawn schedules work on the watchdog's pool. Used by watchers and by
// services that need to outsource non-service work.
func (q *Query) Spawn(f func(ctx context.Context)) *Task {
	return q.pool.Spawn(f)
}

// Intercom is the typed façade one service (or the host) uses to send
// messages to another. It fetches the target's current sender on first
// send and caches it; when the cached sender reports a disconnect (the
// target restarted), it refetches exactly once and retries. A second
// disconnect surfaces as CannotConnectError with RetryAttempted set.
type Intercom[M any] struct {
	query *Query
	name  string

	mu     sync.Mutex
	sender *Sender[M]
}

// current returns the cached sender, fetching it first if needed. The lock
// is not held across the fetch's suspension; concurrent first sends may
// both fetch and the loser's clone is closed.
func (i *Intercom[M]) current(ctx context.Context) (*Sender[M], error) {
	i.mu.Lock()
	sender := i.sender
	i.mu.Unlock()
	if sender != nil {
		return sender, nil
	}

	fresh, err := i.fetch(ctx)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sender != nil {
		fresh.Close()
		return i.sender, nil
	}
	i.sender = fresh
	return fresh, nil
}

// refetch replaces the stale cached sender with a freshly fetched one. If
// another goroutine already replaced it, that sender is used instead.
func (i *Intercom[M]) refetch(ctx context.Context, stale *Sender[M]) (*Sender[M], error) {
	i.mu.Lock()
	if i.sender != stale {
		sender := i.sender
		i.mu.Unlock()
		return sender, nil
	}
	i.mu.Unlock()

	fresh, err := i.fetch(ctx)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sender == stale {
		stale.Close()
		i.sender = fresh
		return fresh, nil
	}
	fresh.Close()
	return i.sender, nil
}

func (i *Intercom[M]) fetch(ctx context.Context) (*Sender[M], error) {
	boxed, err := i.query.intercom(ctx, i.name)
	if err != nil {
		return nil, err
	}
	sender, ok := boxed.(*Sender[M])
	if !ok {
		// Mismatched message types for a declared identifier cannot be
		// produced by correct registration; this is a programming error,
		// not a runtime condition to report.
		panic(fmt.Sprintf("kennel: intercom with %q carries %T, not %T", i.name, boxed, sender))
	}
	return sender, nil
}

// Send delivers m to the target service, suspending while its queue is
// full. See the type documentation for the reconnect contract.
func (i *Intercom[M]) Send(ctx context.Context, m M) error {
	sender, err := i.current(ctx)
	if err != nil {
		return err
	}

	err = sender.Send(ctx, m)
	if err == nil || !errors.Is(err, ErrIntercomDisconnected) {
		return err
	}

	logging.Debug().Str("service", i.name).Msg("intercom disconnected, refetching sender")
	fresh, ferr := i.refetch(ctx, sender)
	if ferr != nil {
		return ferr
	}

	err = fresh.Send(ctx, m)
	if errors.Is(err, ErrIntercomDisconnected) {
		return &CannotConnectError{Identifier: i.name, RetryAttempted: true}
	}
	return err
}

// Close drops the cached sender clone, releasing its connection count.
func (i *Intercom[M]) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.sender != nil {
		i.sender.Close()
		i.sender = nil
	}
}
