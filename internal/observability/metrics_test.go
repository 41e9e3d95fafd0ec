package observability

import (
	"errors"
	"fmt"
	"testing"

	"dreamtales/internal/domain/story"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestReason(t *testing.T) {
	assert.Equal(t, "none", Reason(nil))
	assert.Equal(t, "quota", Reason(fmt.Errorf("%w: 429", story.ErrQuotaExceeded)))
	assert.Equal(t, "unauthorized", Reason(fmt.Errorf("wrapped: %w", story.ErrUnauthorized)))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}

func TestCounters(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.StoryGenerated("template")
	m.StoryGenerated("template")
	m.Narrated("elevenlabs", story.ErrQuotaExceeded)
	m.Narrated("elevenlabs", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoriesGenerated.WithLabelValues("template")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Narrations.WithLabelValues("elevenlabs", "quota")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Narrations.WithLabelValues("elevenlabs", "ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StoryGenerated("template")
		m.GenerationFailed(story.ErrNotAuthenticated)
		m.Narrated("placeholder", nil)
		m.PlaybackEvent("toggled")
	})
}
