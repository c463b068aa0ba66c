package policystore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var policyStoreDegraded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_policy_store_degraded_reads",
	Help: "Number of policy reads which fell back to the default policy due to store errors",
})
