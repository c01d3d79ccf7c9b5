// Package parallel provides a broadcast.Executor that runs callbacks on a
// fixed pool of worker goroutines. Callbacks may run concurrently and in any
// order relative to each other.
package parallel

import (
	"log/slog"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast/executors"

	"github.com/prometheus/client_golang/prometheus"
)

type Executor struct {
	maxConcurrency int

	feeder chan func()
	out    chan struct{}

	ident string

	// metrics
	tasksAdded     prometheus.Counter
	tasksProcessed prometheus.Counter
	workersActive  prometheus.Gauge

	log *slog.Logger
}

func NewExecutor(maxC, maxQueue int, ident string) *Executor {
	e := &Executor{
		maxConcurrency: maxC,

		feeder: make(chan func(), maxQueue),
		out:    make(chan struct{}),

		ident: ident,

		tasksAdded:     executors.TasksAdded.WithLabelValues(ident, "parallel"),
		tasksProcessed: executors.TasksProcessed.WithLabelValues(ident, "parallel"),
		workersActive:  executors.WorkersActive.WithLabelValues(ident, "parallel"),

		log: slog.Default().With("system", "parallel-executor"),
	}

	for i := 0; i < maxC; i++ {
		go e.worker()
	}

	e.workersActive.Set(float64(maxC))

	return e
}

// Execute enqueues fn for the pool. Blocks when the queue is full.
func (e *Executor) Execute(fn func()) {
	e.tasksAdded.Inc()
	e.feeder <- fn
}

// Shutdown stops every worker after the queue drains. Execute must not be
// called after Shutdown.
func (e *Executor) Shutdown() {
	e.log.Info("shutting down parallel executor", "ident", e.ident)

	for i := 0; i < e.maxConcurrency; i++ {
		e.feeder <- nil
	}
	close(e.feeder)

	for i := 0; i < e.maxConcurrency; i++ {
		<-e.out
	}

	e.workersActive.Set(0)
	e.log.Info("parallel executor shutdown complete")
}

func (e *Executor) worker() {
	for fn := range e.feeder {
		if fn == nil {
			break
		}
		fn()
		e.tasksProcessed.Inc()
	}
	e.out <- struct{}{}
}
