package generate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the generation loop.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Draws        prometheus.Counter
	RawBits      prometheus.Counter
	DebiasedBits prometheus.Counter
	Duration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qrng_generation_requests_total",
			Help: "Generation requests by final state",
		}, []string{"result"}),
		Draws: f.NewCounter(prometheus.CounterOpts{
			Name: "qrng_trial_draws_total",
			Help: "Total trial-source calls made by generation loops",
		}),
		RawBits: f.NewCounter(prometheus.CounterOpts{
			Name: "qrng_raw_bits_total",
			Help: "Raw bits received from trial sources",
		}),
		DebiasedBits: f.NewCounter(prometheus.CounterOpts{
			Name: "qrng_debiased_bits_total",
			Help: "Bits kept after extraction",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "qrng_generation_duration_seconds",
			Help:    "Wall-clock duration of generation requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeDraw(raw, kept int) {
	if m == nil {
		return
	}
	m.Draws.Inc()
	m.RawBits.Add(float64(raw))
	m.DebiasedBits.Add(float64(kept))
}

func (m *Metrics) observeResult(result string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
	m.Duration.Observe(time.Since(start).Seconds())
}
