package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quiz-player/internal/app"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	attemptsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_attempts_in_progress",
			Help: "Current number of started but unfinished attempts",
		},
	)

	attemptEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempt_events_total",
			Help: "Attempt lifecycle events by type",
		},
		[]string{"type"},
	)
)

// instrument records count and latency per chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// MeteredPublisher counts events and tracks in-progress attempts before
// handing each event to the wrapped publisher.
type MeteredPublisher struct {
	next app.EventPublisher
}

func NewMeteredPublisher(next app.EventPublisher) *MeteredPublisher {
	return &MeteredPublisher{next: next}
}

func (p *MeteredPublisher) Publish(ctx context.Context, event app.Event) error {
	attemptEvents.WithLabelValues(event.Type).Inc()
	switch event.Type {
	case app.EventAttemptStarted:
		attemptsInProgress.Inc()
	case app.EventAttemptCompleted, app.EventAttemptAbandoned:
		attemptsInProgress.Dec()
	}
	return p.next.Publish(ctx, event)
}
