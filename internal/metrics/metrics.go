// Package metrics holds the Prometheus collectors for model calls made
// through the adapter.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets covers inference latencies from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Call modes
const (
	ModeGenerate = "generate"
	ModeStream   = "stream"
)

var (
	// CallsTotal counts finished model calls by mode and unified finish reason.
	// Calls that failed before producing a result use the reason "failed";
	// streams that ended without a finish part use "incomplete".
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openclaw_calls_total",
			Help: "Model calls",
		},
		[]string{"model", "mode", "finish_reason"},
	)

	// CallDuration records the time from dispatch to result (or end of
	// stream) in seconds.
	CallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "openclaw_call_duration_seconds",
			Help:    "Model call duration",
			Buckets: LLMBuckets,
		},
		[]string{"model", "mode"},
	)

	// TokensTotal counts tokens by direction (input/output).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openclaw_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)

	// WarningsTotal counts call warnings by type.
	WarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openclaw_warnings_total",
			Help: "Call warnings",
		},
		[]string{"type"},
	)

	// StreamPartsTotal counts normalized stream parts by type.
	StreamPartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openclaw_stream_parts_total",
			Help: "Stream parts emitted",
		},
		[]string{"type"},
	)

	// DecodeFailuresTotal counts vendor payloads rejected by validation.
	DecodeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openclaw_decode_failures_total",
			Help: "Rejected vendor payloads",
		},
		[]string{"kind"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		CallsTotal,
		CallDuration,
		TokensTotal,
		WarningsTotal,
		StreamPartsTotal,
		DecodeFailuresTotal,
	}
}

// Register adds all collectors to reg. Collectors that are already
// registered are left in place.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
