// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"

	"github.com/google/uuid"

	"github.com/tomtom215/kennel/internal/logging"
	"github.com/tomtom215/kennel/internal/metrics"
)

// serviceRuntime drives exactly one activation of a service. It is built by
// the manager, consumed by start, and owns the intercom receiver, the
// status writer, and the control reader for the activation's span.
type serviceRuntime[M any] struct {
	state        *State[M]
	prepare      Prepare[M]
	status       *statusWriter
	control      *controlReader
	watchdogPool *Pool
}

// start launches the activation:
//
//  1. Mark Starting and run the prepare step synchronously on the
//     supervising goroutine.
//  2. Schedule the service task on the service's own pool, abortable.
//  3. Schedule the watcher on the watchdog's pool.
//
// Splitting the two tasks across pools keeps management work (status
// updates, control polling) from being starved by the service's workload,
// and keeps the service's pool clear of supervisor traffic.
func (rt *serviceRuntime[M]) start() {
	rt.status.update(StatusStarting)

	receiver := rt.state.receiver
	runner := rt.prepare(rt.state)

	log := logging.With().
		Str("service", rt.state.identifier).
		Str("activation", uuid.New().String()[:8]).
		Logger()

	task := rt.state.pool.Spawn(runner.Run)

	control := rt.control
	status := rt.status
	rt.watchdogPool.Spawn(func(ctx context.Context) {
		status.update(StatusStarted)
		log.Debug().Msg("service started")

		for {
			cmd, ok, closed, notify := control.poll()
			switch {
			case ok && cmd == ControlShutdown:
				log.Info().Msg("shutting down...")
				// The status change is the signal: a service watching
				// its status reader observes ShuttingDown and is
				// expected to finish voluntarily.
				status.update(StatusShuttingDown)
				continue
			case (ok && cmd == ControlKill) || closed:
				log.Info().Msg("terminating...")
				status.update(StatusShutdown)
				task.Abort()
				receiver.Close()
				return
			}

			select {
			case <-task.Done():
				if v, stack, panicked := task.Panicked(); panicked {
					metrics.ServicePanics.WithLabelValues(rt.state.identifier).Inc()
					log.Error().
						Interface("panic", v).
						Bytes("stack", stack).
						Msg("service task failed")
				} else {
					log.Debug().Msg("service finished")
				}
				status.update(StatusShutdown)
				receiver.Close()
				return
			case <-notify:
				// A control command arrived; consume it on the next turn.
			case <-ctx.Done():
				// The watchdog pool is going away; nobody is left to
				// supervise, so the activation is torn down.
				status.update(StatusShutdown)
				task.Abort()
				receiver.Close()
				return
			}
		}
	})
}
