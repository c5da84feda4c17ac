package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReadingsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "envrelay_readings_collected_total",
		Help: "Readings produced by the pollers, by source device.",
	}, []string{"source"})

	ReadingsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "envrelay_readings_written_total",
		Help: "Readings successfully written to the sink.",
	})

	SinkWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "envrelay_sink_write_failures_total",
		Help: "Sink writes that failed and were skipped.",
	})

	CycleTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "envrelay_cycle_timeouts_total",
		Help: "Serial sampling cycles abandoned at the cycle deadline.",
	})

	CycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "envrelay_cycle_failures_total",
		Help: "Sampling cycles that failed before the deadline.",
	})
)

// Handler serves the process metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
