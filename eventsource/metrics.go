package eventsource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsPublishedCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcast_source_events_published_total",
	Help: "Total number of events published to the source",
})

var eventsDeliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcast_source_events_delivered_total",
	Help: "Total number of events handed to subscriber channels",
})

var eventsOverflowCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "broadcast_source_events_overflow_total",
	Help: "Total number of events dropped because a subscriber channel was full",
})

var subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "broadcast_source_subscribers",
	Help: "Number of active subscriptions on the source",
})
