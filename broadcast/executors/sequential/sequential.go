// Package sequential provides a broadcast.Executor that runs callbacks one at
// a time on a single worker goroutine, in submission order.
package sequential

import (
	"log/slog"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast/executors"

	"github.com/prometheus/client_golang/prometheus"
)

type Executor struct {
	feeder chan func()
	out    chan struct{}

	ident string

	// metrics
	tasksAdded     prometheus.Counter
	tasksProcessed prometheus.Counter
	workersActive  prometheus.Gauge

	log *slog.Logger
}

func NewExecutor(ident string, maxQueue int) *Executor {
	e := &Executor{
		feeder: make(chan func(), maxQueue),
		out:    make(chan struct{}),

		ident: ident,

		tasksAdded:     executors.TasksAdded.WithLabelValues(ident, "sequential"),
		tasksProcessed: executors.TasksProcessed.WithLabelValues(ident, "sequential"),
		workersActive:  executors.WorkersActive.WithLabelValues(ident, "sequential"),

		log: slog.Default().With("system", "sequential-executor"),
	}

	go e.worker()

	e.workersActive.Set(1)

	return e
}

// Execute enqueues fn for the worker. Blocks when the queue is full.
func (e *Executor) Execute(fn func()) {
	e.tasksAdded.Inc()
	e.feeder <- fn
}

// Shutdown drains queued callbacks and stops the worker. Execute must not be
// called after Shutdown.
func (e *Executor) Shutdown() {
	e.log.Info("shutting down sequential executor", "ident", e.ident)

	e.feeder <- nil
	close(e.feeder)
	<-e.out

	e.workersActive.Set(0)
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
