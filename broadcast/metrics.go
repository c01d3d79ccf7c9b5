package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var opsEnqueuedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_dispatcher_ops_enqueued_total",
	Help: "Total number of operations enqueued to the dispatcher worker",
}, []string{"op"})

var opsDroppedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_dispatcher_ops_dropped_total",
	Help: "Total number of operations dropped by the worker",
}, []string{"reason"})

var delegatesCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcast_dispatcher_delegates_created_total",
	Help: "Total number of per-user delegates lazily created",
})

var registrySizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "broadcast_dispatcher_registry_size",
	Help: "Number of user entries in the dispatcher registry",
})
