// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

// These tests exercise the watchdog's own properties without services to
// add noise around.

package kennel

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func buildEmpty(t *testing.T) *Monitor {
	t.Helper()
	return NewBuilder().
		WithDrainTimeout(time.Second).
		Build(func(pools *Pools) Aggregate { return NewRegistry() })
}

// waitFinished runs WaitFinished and fails the test if it does not return
// within the bound.
func waitFinished(t *testing.T, monitor *Monitor, bound time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		monitor.WaitFinished()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(bound):
		t.Fatal("watchdog did not finish in time")
	}
}

func TestWatchdog(t *testing.T) {
	t.Run("start then shutdown an empty aggregate", func(t *testing.T) {
		monitor := buildEmpty(t)
		query := monitor.Control()

		monitor.Spawn(func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			query.Shutdown(ctx)
		})

		waitFinished(t, monitor, time.Second)
	})

	t.Run("kill an empty aggregate", func(t *testing.T) {
		monitor := buildEmpty(t)
		query := monitor.Control()

		monitor.Spawn(func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			query.Kill(ctx)
		})

		waitFinished(t, monitor, time.Second)
	})

	t.Run("starting an unknown service is reported", func(t *testing.T) {
		monitor := buildEmpty(t)
		query := monitor.Control()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := query.Start(ctx, "unregistered")
		var unknown *UnknownServiceError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownServiceError, got %v", err)
		}
		if unknown.Identifier != "unregistered" {
			t.Errorf("identifier = %q", unknown.Identifier)
		}
		if len(unknown.PossibleValues) != 0 {
			t.Errorf("possible values = %v, want none", unknown.PossibleValues)
		}

		query.Shutdown(ctx)
		waitFinished(t, monitor, time.Second)
	})

	t.Run("unknown service names the declared identifiers in order", func(t *testing.T) {
		monitor := NewBuilder().
			WithDrainTimeout(time.Second).
			Build(func(pools *Pools) Aggregate {
				registry := NewRegistry()
				Register(registry, NewManager(NewKey[NoIntercom]("alpha"), blockingService(nil), pools.Shared()))
				Register(registry, NewManager(NewKey[NoIntercom]("beta"), blockingService(nil), pools.Shared()))
				return registry
			})
		query := monitor.Control()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err := query.Status(ctx, "gamma")
		var unknown *UnknownServiceError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownServiceError, got %v", err)
		}
		if want := []string{"alpha", "beta"}; !reflect.DeepEqual(unknown.PossibleValues, want) {
			t.Errorf("possible values = %v, want %v", unknown.PossibleValues, want)
		}

		query.Shutdown(ctx)
		waitFinished(t, monitor, time.Second)
	})

	t.Run("commands after the watchdog is gone get no reply", func(t *testing.T) {
		monitor := buildEmpty(t)
		query := monitor.Control()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		query.Shutdown(ctx)
		waitFinished(t, monitor, time.Second)

		_, err := query.Status(ctx, "anything")
		var noReply *NoReplyError
		if !errors.As(err, &noReply) {
			t.Fatalf("expected NoReplyError, got %v", err)
		}
		if noReply.Context != "status query" {
			t.Errorf("context = %q", noReply.Context)
		}
	})

	t.Run("registering the same identifier twice panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected a panic on duplicate registration")
			}
		}()
		registry := NewRegistry()
		pool := newPool(PoolConfig{Name: "dup"})
		defer pool.shutdown(time.Second)
		Register(registry, NewManager(NewKey[NoIntercom]("twin"), blockingService(nil), pool))
		Register(registry, NewManager(NewKey[NoIntercom]("twin"), blockingService(nil), pool))
	})
}
