// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kennel/config"
	"github.com/tomtom215/kennel/internal/logging"
	"github.com/tomtom215/kennel/internal/metrics"
)

// defaultCommandQueueCapacity bounds the supervisor's command queue.
const defaultCommandQueueCapacity = 10

// defaultDrainTimeout is how long WaitFinished waits for the pools to
// drain after the supervisor exits.
const defaultDrainTimeout = 5 * time.Second

// Builder assembles a watchdog: the scheduling pools, the aggregate, and
// the supervisor loop. Construction is infallible; the zero builder with
// no options is a working production setup.
//
//	monitor := kennel.NewBuilder().Build(func(pools *kennel.Pools) kennel.Aggregate {
//	    registry := kennel.NewRegistry()
//	    kennel.Register(registry, kennel.NewManager(Stdin, prepareStdin, pools.Shared()))
//	    kennel.Register(registry, kennel.NewManager(Stdout, prepareStdout, pools.Shared()))
//	    return registry
//	})
type Builder struct {
	watchdogWorkers int
	sharedWorkers   int
	queueCapacity   int
	drainTimeout    time.Duration
}

// NewBuilder returns a builder with production defaults.
func NewBuilder() *Builder {
	return &Builder{
		queueCapacity: defaultCommandQueueCapacity,
		drainTimeout:  defaultDrainTimeout,
	}
}

// WithConfig applies a loaded configuration: pool worker caps and drain
// timeout. Intercom capacity is per-manager; pass cfg.Intercom.Capacity to
// WithIntercomCapacity where a service wants the configured value.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.watchdogWorkers = cfg.Pools.WatchdogWorkers
	b.sharedWorkers = cfg.Pools.SharedWorkers
	if cfg.Pools.DrainTimeout > 0 {
		b.drainTimeout = cfg.Pools.DrainTimeout
	}
	return b
}

// WithDrainTimeout overrides how long WaitFinished waits for the pools to
// drain after the supervisor exits.
func (b *Builder) WithDrainTimeout(d time.Duration) *Builder {
	b.drainTimeout = d
	return b
}

// Build creates the pools, constructs the aggregate against them, starts
// the supervisor loop on the watchdog pool, and returns the monitor.
func (b *Builder) Build(construct func(pools *Pools) Aggregate) *Monitor {
	pools := newPools(b.watchdogWorkers, b.sharedWorkers)
	aggregate := construct(pools)

	commands := make(chan command, b.queueCapacity)
	finished := make(chan struct{})
	query := &Query{commands: commands, finished: finished, pool: pools.Watchdog()}

	w := &watchdog{
		aggregate: aggregate,
		finished:  finished,
		log:       logging.With().Str("component", "watchdog").Logger(),
	}
	pools.Watchdog().Spawn(func(ctx context.Context) {
		w.run(ctx, commands, query)
	})

	return &Monitor{
		pools:        pools,
		commands:     commands,
		finished:     finished,
		drainTimeout: b.drainTimeout,
	}
}

// watchdog is the supervisor: the single consumer of the command queue for
// the lifetime of the system.
type watchdog struct {
	aggregate Aggregate
	finished  chan struct{}
	log       zerolog.Logger
}

func (w *watchdog) run(ctx context.Context, commands <-chan command, query *Query) {
	defer close(w.finished)
	defer w.closeAggregate()

	for {
		select {
		case cmd := <-commands:
			metrics.WatchdogCommands.WithLabelValues(cmd.kind.String()).Inc()
			if !w.dispatch(ctx, cmd, query) {
				return
			}
		case <-ctx.Done():
			// The watchdog pool is being torn down underneath the
			// supervisor; treat it as a kill.
			w.log.Warn().Msg("watchdog pool canceled, stopping")
			return
		}
	}
}

// dispatch handles one command; it reports false when the loop must stop.
func (w *watchdog) dispatch(ctx context.Context, cmd command, query *Query) bool {
	switch cmd.kind {
	case cmdShutdown, cmdKill:
		// Shutdown and Kill terminate the loop the same way for now; the
		// distinction is kept in the command vocabulary so graceful
		// propagation to each managed service can be added without
		// breaking callers.
		w.log.Warn().Stringer("command", cmd).Msg("stopping watchdog")
		return false

	case cmdStatus:
		report, err := w.aggregate.Status(ctx, cmd.name)
		if err == nil {
			w.log.Info().
				Str("identifier", report.Identifier).
				Stringer("status", report.Status).
				Uint64("restarts", report.Restarts).
				Uint64("sent", report.Intercom.NumberSent).
				Uint64("received", report.Intercom.NumberReceived).
				Uint64("connections", report.Intercom.NumberConnections).
				Float64("processing_speed_mean", report.Intercom.ProcessingSpeedMean).
				Float64("processing_speed_variance", report.Intercom.ProcessingSpeedVariance).
				Float64("processing_speed_standard_deviation", report.Intercom.ProcessingSpeedStandardDeviation).
				Msg("status")
		}
		w.deliver(cmd, commandReply{err: err, report: report})

	case cmdStart:
		w.log.Info().Str("service", cmd.name).Msg("start")
		w.deliver(cmd, commandReply{err: w.aggregate.Start(cmd.name, query)})

	case cmdStop:
		w.log.Info().Str("service", cmd.name).Msg("stop")
		w.deliver(cmd, commandReply{err: w.aggregate.Stop(cmd.name)})

	case cmdIntercom:
		w.log.Trace().Str("service", cmd.name).Msg("query intercom")
		sender, err := w.aggregate.Intercom(cmd.name)
		w.deliver(cmd, commandReply{err: err, sender: sender})
	}
	return true
}

// deliver answers a command through its one-shot reply slot.
func (w *watchdog) deliver(cmd command, r commandReply) {
	if cmd.reply == nil {
		w.log.Error().Stringer("command", cmd).Msg("cannot reply, command carries no reply slot")
		return
	}
	cmd.reply <- r
}

func (w *watchdog) closeAggregate() {
	if closer, ok := w.aggregate.(interface{ Close() }); ok {
		closer.Close()
	}
}
