package dispatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_enqueued",
	Help: "Number of enforcement actions accepted for dispatch",
}, []string{"kind"})

var actionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_applied",
	Help: "Number of enforcement actions confirmed applied",
}, []string{"kind"})

var actionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_failed",
	Help: "Number of enforcement actions which exhausted their retry budget",
}, []string{"kind"})

var actionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_dropped",
	Help: "Number of enforcement actions dropped before dispatch",
}, []string{"cause"})
