package userdispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveriesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_user_deliveries_total",
	Help: "Total number of broadcasts handed to consumer executors",
}, []string{"user"})

var dedupedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "broadcast_user_registrations_deduped_total",
	Help: "Total number of repeat (receiver, filter) registrations ignored",
}, []string{"user"})

var actionBindingsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "broadcast_user_action_bindings",
	Help: "Number of live per-action source subscriptions held for a user",
}, []string{"user"})
