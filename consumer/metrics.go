package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gatewayEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_gateway_events_received",
	Help: "Number of events received from the platform gateway",
}, []string{"type"})

var gatewayEventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_events_skipped",
	Help: "Number of gateway frames skipped (unknown type or missing ids)",
})

var gatewayReconnects = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_gateway_reconnects",
	Help: "Number of gateway websocket reconnect attempts",
})
