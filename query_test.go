// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntercomFacade(t *testing.T) {
	t.Run("the sender is fetched once and cached", func(t *testing.T) {
		key := NewKey[int]("sink")
		var received atomic.Int64

		monitor := NewBuilder().
			WithDrainTimeout(time.Second).
			Build(func(pools *Pools) Aggregate {
				registry := NewRegistry()
				Register(registry, NewManager(key,
					func(state *State[int]) Service {
						rx := state.Intercom()
						return ServiceFunc(func(ctx context.Context) {
							for {
								if _, err := rx.Recv(ctx); err != nil {
									return
								}
								received.Add(1)
							}
						})
					},
					pools.Shared()))
				return registry
			})

		query := monitor.Control()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := query.Start(ctx, key.Name()); err != nil {
			t.Fatal(err)
		}
		pollStatus(t, query, key.Name(), StatusStarted)

		facade := key.Intercom(query)
		for i := range 3 {
			if err := facade.Send(ctx, i); err != nil {
				t.Fatalf("send %d: %v", i, err)
			}
		}

		// One fetch for three sends: the channel sees exactly one clone
		// beyond the manager's own sender.
		report := pollStatus(t, query, key.Name(), StatusStarted)
		if got := report.Intercom.NumberConnections; got != 2 {
			t.Errorf("connections = %d, want 2 (manager + cached façade)", got)
		}

		query.Shutdown(ctx)
		waitFinished(t, monitor, 3*time.Second)
	})

	t.Run("a persistently down target fails with retry attempted", func(t *testing.T) {
		key := NewKey[int]("ephemeral")

		monitor := NewBuilder().
			WithDrainTimeout(time.Second).
			Build(func(pools *Pools) Aggregate {
				registry := NewRegistry()
				Register(registry, NewManager(key,
					func(state *State[int]) Service {
						return ServiceFunc(func(ctx context.Context) {}) // exits immediately
					},
					pools.Shared()))
				return registry
			})

		query := monitor.Control()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := query.Start(ctx, key.Name()); err != nil {
			t.Fatal(err)
		}
		pollStatus(t, query, key.Name(), StatusShutdown)

		// The service is gone; the fetched sender reports a disconnect,
		// the refetched one too.
		facade := key.Intercom(query)
		err := facade.Send(ctx, 1)
		var cannot *CannotConnectError
		if !errors.As(err, &cannot) {
			t.Fatalf("expected CannotConnectError, got %v", err)
		}
		if !cannot.RetryAttempted {
			t.Error("expected the façade to have retried once")
		}
		if cannot.Identifier != key.Name() {
			t.Errorf("identifier = %q", cannot.Identifier)
		}

		query.Shutdown(ctx)
		waitFinished(t, monitor, 3*time.Second)
	})

	t.Run("an unknown target surfaces the lookup error", func(t *testing.T) {
		monitor := buildEmpty(t)
		query := monitor.Control()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		facade := NewKey[int]("nowhere").Intercom(query)
		err := facade.Send(ctx, 1)
		var unknown *UnknownServiceError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownServiceError, got %v", err)
		}

		query.Shutdown(ctx)
		waitFinished(t, monitor, 3*time.Second)
	})
}

func TestQuerySpawn(t *testing.T) {
	monitor := buildEmpty(t)
	query := monitor.Control()

	var ran atomic.Bool
	task := query.Spawn(func(ctx context.Context) {
		ran.Store(true)
	})

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("spawned work did not run")
	}
	if !ran.Load() {
		t.Error("spawned body did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	query.Shutdown(ctx)
	waitFinished(t, monitor, time.Second)
}
