package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by operation and result",
		},
		[]string{"operation", "result"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	GradingsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gradings_started_total",
			Help: "Total number of grading runs started",
		},
	)
	GradingsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradings_completed_total",
			Help: "Total number of grading runs completed by path (model or fallback)",
		},
		[]string{"path"},
	)
	GradingsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gradings_failed_total",
			Help: "Total number of grading runs that failed outright",
		},
	)

	PipelineCorrectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_corrections_total",
			Help: "Total number of reconciliation corrections applied by kind",
		},
		[]string{"kind"},
	)
	RepairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_repairs_total",
			Help: "Total number of successful payload repairs by strategy",
		},
		[]string{"strategy"},
	)

	FinalScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grading_final_score",
			Help:    "Distribution of final_score (normalized fraction [0,1])",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(GradingsStartedTotal)
	prometheus.MustRegister(GradingsCompletedTotal)
	prometheus.MustRegister(GradingsFailedTotal)
	prometheus.MustRegister(PipelineCorrectionsTotal)
	prometheus.MustRegister(RepairsTotal)
	prometheus.MustRegister(FinalScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveGrading records the outcome of one grading run.
func ObserveGrading(path string, finalScore float64) {
	GradingsCompletedTotal.WithLabelValues(path).Inc()
	if finalScore >= 0 && finalScore <= 1 {
		FinalScoreHistogram.Observe(finalScore)
	}
}
