// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"fmt"
)

// Aggregate is the user-declared composite of service managers: the
// enumeration of an application's services and the indexed operations the
// supervisor dispatches commands through.
//
// Most applications use Registry rather than implementing this directly.
// An Aggregate that also implements Close() is closed when the supervisor
// exits, killing whatever is still running.
type Aggregate interface {
	// Start materializes and launches one activation of the named service.
	Start(name string, q *Query) error

	// Stop requests a graceful stop of the named service.
	Stop(name string) error

	// Status snapshots the named service's status report.
	Status(ctx context.Context, name string) (StatusReport, error)

	// Intercom returns the named service's current boxed sender. The
	// caller downcasts it to the correct typed sender.
	Intercom(name string) (any, error)

	// Identifiers enumerates the declared identifiers in a stable order.
	Identifiers() []string
}

// managedService is the type-erased view the registry keeps of each
// *Manager[M].
type managedService interface {
	serviceIdentifier() string
	startService(q *Query) error
	stopService()
	serviceStatus(ctx context.Context) StatusReport
	boxedIntercom() any
	closeService()
}

func (m *Manager[M]) serviceIdentifier() string { return m.key.Name() }

func (m *Manager[M]) startService(q *Query) error {
	rt, err := m.runtime(q)
	if err != nil {
		return err
	}
	rt.start()
	return nil
}

func (m *Manager[M]) stopService() { m.Shutdown() }

func (m *Manager[M]) serviceStatus(ctx context.Context) StatusReport {
	return m.Status(ctx)
}

func (m *Manager[M]) boxedIntercom() any { return m.Intercom() }

func (m *Manager[M]) closeService() { m.Close() }

// Registry is the hand-registered Aggregate: a table from identifier to
// manager, in registration order. It is assembled before the watchdog is
// built and not mutated afterwards.
type Registry struct {
	order   []string
	entries map[string]managedService
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]managedService)}
}

// Register adds a manager to the registry. Registering two services under
// the same identifier is a declaration error and panics.
func Register[M any](r *Registry, m *Manager[M]) {
	name := m.Identifier()
	if _, dup := r.entries[name]; dup {
		panic(fmt.Sprintf("kennel: service %q registered twice", name))
	}
	r.order = append(r.order, name)
	r.entries[name] = m
}

func (r *Registry) lookup(name string) (managedService, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, &UnknownServiceError{
			Identifier:     name,
			PossibleValues: r.Identifiers(),
		}
	}
	return entry, nil
}

// Start implements Aggregate.
func (r *Registry) Start(name string, q *Query) error {
	entry, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := entry.startService(q); err != nil {
		return &CannotStartServiceError{Identifier: name, Cause: err}
	}
	return nil
}

// Stop implements Aggregate.
func (r *Registry) Stop(name string) error {
	entry, err := r.lookup(name)
	if err != nil {
		return err
	}
	entry.stopService()
	return nil
}

// Status implements Aggregate.
func (r *Registry) Status(ctx context.Context, name string) (StatusReport, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return StatusReport{}, err
	}
	return entry.serviceStatus(ctx), nil
}

// Intercom implements Aggregate.
func (r *Registry) Intercom(name string) (any, error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.boxedIntercom(), nil
}

// Identifiers implements Aggregate. The order is the registration order.
func (r *Registry) Identifiers() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Close tears down every manager; services still running receive Kill.
// Called by the watchdog when its loop exits.
func (r *Registry) Close() {
	for _, name := range r.order {
		r.entries[name].closeService()
	}
}
