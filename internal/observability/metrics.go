package observability

import (
	"errors"
	"net/http"

	"dreamtales/internal/domain/story"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments. A nil *Metrics records nothing.
type Metrics struct {
	StoriesGenerated   *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	Narrations         *prometheus.CounterVec
	PlaybackEvents     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoriesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stories_generated_total",
			Help:      "Stories generated by strategy.",
		}, []string{"strategy"}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "story_generation_failures_total",
			Help:      "Failed story generations by reason.",
		}, []string{"reason"}),
		Narrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrations_total",
			Help:      "Narration requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		PlaybackEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_events_total",
			Help:      "Playback state machine events by type.",
		}, []string{"event"}),
		gatherer: reg,
	}
}

func (m *Metrics) StoryGenerated(strategy string) {
	if m == nil {
		return
	}
	m.StoriesGenerated.WithLabelValues(strategy).Inc()
}

func (m *Metrics) GenerationFailed(err error) {
	if m == nil {
		return
	}
	m.GenerationFailures.WithLabelValues(Reason(err)).Inc()
}

func (m *Metrics) Narrated(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = Reason(err)
	}
	m.Narrations.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) PlaybackEvent(event string) {
	if m == nil {
		return
	}
	m.PlaybackEvents.WithLabelValues(event).Inc()
}

// Handler exposes the registry this Metrics was built on
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Reason maps an error onto a low-cardinality label
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, story.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, story.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, story.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, story.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, story.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, story.ErrInvalidParams):
		return "invalid_params"
	case errors.Is(err, story.ErrGenerationInProgress):
		return "in_progress"
	default:
		return "other"
	}
}
