// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

// Package kennel supervises long-lived applications assembled from
// multiple independent, concurrently running services.
//
// An application declares its services once; the watchdog binds each to a
// scheduling pool, mediates a typed intercom channel from every other
// service to it, and starts, observes, and gracefully stops it on command.
//
// # Declaring a service
//
// A service is a message type, a key binding its identifier to that type,
// a prepare step, and a run step:
//
//	type WriteMsg struct{ Line string }
//
//	var Stdout = kennel.NewKey[WriteMsg]("stdout")
//
//	func prepareStdout(state *kennel.State[WriteMsg]) kennel.Service {
//	    rx := state.Intercom()
//	    return kennel.ServiceFunc(func(ctx context.Context) {
//	        for {
//	            msg, err := rx.Recv(ctx)
//	            if err != nil {
//	                return
//	            }
//	            fmt.Println(msg.Line)
//	        }
//	    })
//	}
//
// # Running an application
//
//	monitor := kennel.NewBuilder().Build(func(pools *kennel.Pools) kennel.Aggregate {
//	    registry := kennel.NewRegistry()
//	    kennel.Register(registry, kennel.NewManager(Stdout, prepareStdout, pools.Shared()))
//	    return registry
//	})
//
//	query := monitor.Control()
//	_ = query.Start(context.Background(), Stdout.Name())
//	monitor.WaitFinished()
//
// Services reach one another through the same query handle:
//
//	stdout := Stdout.Intercom(state.Watchdog())
//	err := stdout.Send(ctx, WriteMsg{Line: line})
//
// # Scheduling domains
//
// The watchdog runs its supervisor loop and all per-service watchers on
// its own pool, so management work is never starved by service workloads.
// Services run on the shared pool or on exclusive pools of their own,
// chosen when their manager is constructed.
//
// The declaration vocabulary maps onto the API: a service declared shared
// is registered against pools.Shared(); one declared exclusive gets
// pools.AddIndividual with its io/time capabilities; a field declared skip
// is simply not registered.
//
// # Stopping
//
// Stop is cooperative: the watcher flips the service's status to
// ShuttingDown and the service is expected to observe its StatusReader and
// finish; a pending Recv is not woken by a Stop. Kill cancels the activation's
// context, tearing the task down at its next suspension point; a service
// hung in non-cancellable compute is not killable and must poll its status
// between units of work.
package kennel
