package executors

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TasksAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_executor_tasks_added_total",
	Help: "Total number of callbacks enqueued to the executor",
}, []string{"pool", "executor_type"})

var TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_executor_tasks_processed_total",
	Help: "Total number of callbacks run by the executor",
}, []string{"pool", "executor_type"})

var WorkersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "broadcast_executor_workers_active",
	Help: "Number of executor workers currently active",
}, []string{"pool", "executor_type"})
