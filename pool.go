// Kennel - Service Supervision and Typed Intercom Runtime
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennel

package kennel

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/kennel/internal/logging"
)

// PoolConfig describes one scheduling domain.
//
// The Go runtime is the M:N scheduler, so IO and Time do not switch drivers
// on and off the way a bespoke reactor would; they are carried as the
// declared capabilities of the domain and surface in logs and in the
// configuration vocabulary (`io`, `time` on exclusive services).
type PoolConfig struct {
	// Name identifies the pool in logs.
	Name string

	// IO declares that services on this pool perform I/O.
	IO bool

	// Time declares that services on this pool use timers.
	Time bool

	// Workers caps the number of concurrently running tasks.
	// Zero means unbounded.
	Workers int
}

// Task is a handle to one spawned unit of work: a completion channel, an
// abort switch, and the captured panic, if any.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc
	panics atomic.Pointer[taskPanic]
}

type taskPanic struct {
	value any
	stack []byte
}

// Done is closed when the task has returned, whether normally, by panic,
// or after an abort.
func (t *Task) Done() <-chan struct{} { return t.done }

// Abort cancels the task's context. The task is torn down at its next
// suspension point; a task hung in non-cancellable compute keeps running
// until it next observes its context.
func (t *Task) Abort() { t.cancel() }

// Panicked returns the recovered panic value and stack, if the task
// panicked. Only meaningful after Done is closed.
func (t *Task) Panicked() (any, []byte, bool) {
	if p := t.panics.Load(); p != nil {
		return p.value, p.stack, true
	}
	return nil, nil, false
}

// Pool is one execution context on which tasks are scheduled. Tasks run as
// goroutines scoped to the pool's lifetime; shutting the pool down cancels
// every task's context and waits for them to drain.
type Pool struct {
	cfg    PoolConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sem    chan struct{}
}

func newPool(cfg PoolConfig) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{cfg: cfg, ctx: ctx, cancel: cancel}
	if cfg.Workers > 0 {
		p.sem = make(chan struct{}, cfg.Workers)
	}
	logging.Debug().
		Str("pool", cfg.Name).
		Bool("io", cfg.IO).
		Bool("time", cfg.Time).
		Int("workers", cfg.Workers).
		Msg("pool created")
	return p
}

// Name returns the pool's configured name.
func (p *Pool) Name() string { return p.cfg.Name }

// Spawn schedules f on the pool and returns its handle. The function
// receives a context that is canceled when the task is aborted or the pool
// shuts down; f is expected to return promptly once that context is done.
func (p *Pool) Spawn(f func(ctx context.Context)) *Task {
	taskCtx, cancel := context.WithCancel(p.ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(t.done)
		defer cancel()

		if p.sem != nil {
			select {
			case p.sem <- struct{}{}:
				defer func() { <-p.sem }()
			case <-taskCtx.Done():
				return
			}
		}

		defer func() {
			if r := recover(); r != nil {
				t.panics.Store(&taskPanic{value: r, stack: debug.Stack()})
			}
		}()

		f(taskCtx)
	}()

	return t
}

// shutdown cancels every task context and waits up to timeout for the pool
// to drain. It reports whether all tasks returned in time.
func (p *Pool) shutdown(timeout time.Duration) bool {
	p.cancel()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return true
	case <-time.After(timeout):
		logging.Warn().Str("pool", p.cfg.Name).Msg("pool did not drain before timeout")
		return false
	}
}

// Pools holds the scheduling domains of one watchdog: the watchdog pool
// (supervisor loop, watchers, query-originated work), the shared services
// pool, and one pool per exclusive service.
//
// Individual pools are added while the aggregate is constructed, before the
// supervisor starts; the map is not touched afterwards.
type Pools struct {
	watchdog    *Pool
	shared      *Pool
	individuals map[string]*Pool
}

func newPools(watchdogWorkers, sharedWorkers int) *Pools {
	return &Pools{
		watchdog:    newPool(PoolConfig{Name: "watchdog", Time: true, Workers: watchdogWorkers}),
		shared:      newPool(PoolConfig{Name: "shared", IO: true, Time: true, Workers: sharedWorkers}),
		individuals: make(map[string]*Pool),
	}
}

// Watchdog returns the supervisor's own pool.
func (p *Pools) Watchdog() *Pool { return p.watchdog }

// Shared returns the pool hosting every service declared shared.
func (p *Pools) Shared() *Pool { return p.shared }

// AddIndividual creates an exclusive pool for one service and registers it
// under its name.
func (p *Pools) AddIndividual(cfg PoolConfig) *Pool {
	pool := newPool(cfg)
	p.individuals[cfg.Name] = pool
	return pool
}

// Individual returns the exclusive pool registered under name, or nil.
func (p *Pools) Individual(name string) *Pool {
	return p.individuals[name]
}

func (p *Pools) shutdown(timeout time.Duration) {
	for _, pool := range p.individuals {
		pool.shutdown(timeout)
	}
	p.shared.shutdown(timeout)
	p.watchdog.shutdown(timeout)
}
