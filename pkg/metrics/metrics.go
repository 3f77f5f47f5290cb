package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wikibot"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Outbound HTTP requests by kind (api, image) and result category",
		},
		[]string{"kind", "result"},
	)

	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of outbound HTTP requests by kind",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	imageLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_lookups_total",
			Help:      "Main image lookups by outcome",
		},
		[]string{"outcome"},
	)

	imageProbes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_candidates_probed",
			Help:      "Number of candidates downloaded per main image lookup",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
	)

	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Incoming chat updates by route",
		},
		[]string{"route"},
	)

	handlerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one update, by route",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Handler failures by route and error category",
		},
		[]string{"route", "category"},
	)

	quizEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_events_total",
			Help:      "Quiz lifecycle events (started, answered_correct, answered_wrong, finished)",
		},
		[]string{"event"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{httpRequests, httpLatency, imageLookups, imageProbes, updates, handlerLatency, handlerErrors, quizEvents}
}

// Register adds the collectors to reg. Registering twice with the same
// registry is not an error.
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

// Handler returns the http.Handler for /metrics
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func ObserveHTTP(kind, result string, dur time.Duration) {
	httpRequests.WithLabelValues(kind, result).Inc()
	httpLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

func ObserveImageLookup(outcome string, probed int) {
	imageLookups.WithLabelValues(outcome).Inc()
	imageProbes.Observe(float64(probed))
}

func ObserveUpdate(route string, dur time.Duration) {
	updates.WithLabelValues(route).Inc()
	handlerLatency.WithLabelValues(route).Observe(dur.Seconds())
}

func IncHandlerError(route, category string) { handlerErrors.WithLabelValues(route, category).Inc() }

func IncQuizEvent(event string) { quizEvents.WithLabelValues(event).Inc() }
