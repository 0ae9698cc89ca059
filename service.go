// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
)

// Key names a service type and binds its intercom message type at compile
// time. Declare one per service, next to the service's message type:
//
//	type WriteMsg struct{ Line string }
//
//	var Stdout = kennel.NewKey[WriteMsg]("stdout")
//
// The identifier must be unique within an aggregate and stable across the
// life of the application.
type Key[M any] struct {
	name string
}

// NewKey declares a service key with the given identifier.
func NewKey[M any](name string) Key[M] {
	return Key[M]{name: name}
}

// Name returns the service identifier.
func (k Key[M]) Name() string { return k.name }

// String implements fmt.Stringer.
func (k Key[M]) String() string { return k.name }

// Intercom opens a typed intercom façade to this service through the given
// query handle. The façade fetches the target's current sender on first
// send and refetches once if the target restarted in between.
func (k Key[M]) Intercom(q *Query) *Intercom[M] {
	return &Intercom[M]{query: q, name: k.name}
}

// Service is one unit of the application: the value built by the prepare
// step, run until the service finishes.
//
// Run receives the activation's context. The context is canceled on Kill
// and when the pools shut down; every blocking core operation (Recv, Send,
// StatusReader.Updated, query commands) takes it, so a service built on
// those is torn down at its next suspension point. A service hung in
// non-cancellable compute is not killable; such services must check their
// status reader between units of work to stay stoppable.
type Service interface {
	Run(ctx context.Context)
}

// ServiceFunc adapts a plain function to the Service interface.
type ServiceFunc func(ctx context.Context)

// Run implements Service.
func (f ServiceFunc) Run(ctx context.Context) { f(ctx) }

// Prepare builds the service value for one activation. It runs
// synchronously on the supervising goroutine, before the service task is
// scheduled; use it to wire intercoms and local resources.
type Prepare[M any] func(state *State[M]) Service

// State is the per-activation view handed to a service's prepare step.
// Each activation gets its own State carrying the fresh intercom receiver.
type State[M any] struct {
	identifier string
	pool       *Pool
	receiver   *Receiver[M]
	query      *Query
	status     *StatusReader
}

// Identifier returns the service's identifier.
func (s *State[M]) Identifier() string { return s.identifier }

// Watchdog returns the query handle, allowing raw access to all watchdog
// commands and intercoms with other services.
func (s *State[M]) Watchdog() *Query { return s.query }

// Intercom returns the receiver end of this service's intercom channel,
// the end that yields messages sent by other services.
func (s *State[M]) Intercom() *Receiver[M] { return s.receiver }

// StatusReader returns the service's status reader. A service watching it
// observes the ShuttingDown transition and can prepare to exit gracefully.
func (s *State[M]) StatusReader() *StatusReader { return s.status }

// Runtime returns the pool this service's tasks are scheduled on.
func (s *State[M]) Runtime() *Pool { return s.pool }

// Spawn schedules a future on the service's own pool. Subtasks spawned
// here share the service's scheduling domain rather than the watchdog's.
func (s *State[M]) Spawn(f func(ctx context.Context)) *Task {
	return s.pool.Spawn(f)
}

// IntercomWith opens a typed intercom façade with the target service from
// within another service's state. Equivalent to target.Intercom(s.Watchdog()).
func IntercomWith[T any, M any](s *State[M], target Key[T]) *Intercom[T] {
	return target.Intercom(s.query)
}
