package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SuggestionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suggestion_calls_total",
			Help: "Suggestion engine calls by outcome",
		},
		[]string{"outcome"},
	)

	SuggestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "suggestion_duration_ms",
			Help:    "Suggestion engine call duration in milliseconds",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
	)

	Renders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renders_total",
			Help: "Rendered artifacts by path",
		},
		[]string{"path"},
	)

	RenderFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_fallback_total",
			Help: "Renders that degraded to the fallback document",
		},
	)

	TemplateCreates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_creates_total",
			Help: "Template create attempts by outcome",
		},
		[]string{"outcome"},
	)

	StoreInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_inconsistency_total",
			Help: "Record/byte pairs left out of sync, by operation",
		},
		[]string{"op"},
	)

	PlaceholderCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placeholder_cache_total",
			Help: "Placeholder extraction cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fulfillment_sessions_active",
			Help: "Live fulfillment sessions",
		},
	)
)

// ObserveSuggestion records one suggestion call.
func ObserveSuggestion(outcome string, started time.Time) {
	SuggestionCalls.WithLabelValues(outcome).Inc()
	SuggestionDuration.Observe(float64(time.Since(started).Milliseconds()))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
