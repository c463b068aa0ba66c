package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsProcessedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_events_processed",
	Help: "Number of events through the moderation engine",
}, []string{"type", "status"})

var eventsMalformedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_events_malformed",
	Help: "Number of events dropped for missing required fields",
})

var eventsExemptCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_events_exempt",
	Help: "Number of events skipped due to role or channel exemptions",
})

var detectorFailureCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_detector_failures",
	Help: "Number of detector rule invocations that errored or panicked",
})

var violationsRecordedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_violations_recorded",
	Help: "Number of violations written to the ledger",
}, []string{"kind"})

var actionsDebouncedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_actions_debounced",
	Help: "Number of enforcement decisions suppressed by the action debounce window",
})

var actionsQuotaSuppressedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_quota_suppressed",
	Help: "Number of kick/ban decisions suppressed by the daily safety quota",
}, []string{"kind"})

var eventProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "warden_event_process_duration",
	Help:    "Time to process a single event through all detectors, in seconds",
	Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
})
