package tts

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSynth struct {
	limit    int
	err      error
	requests []SpeechRequest
}

func (r *recordingSynth) Name() string { return "recording" }

func (r *recordingSynth) Limit() int { return r.limit }

func (r *recordingSynth) Synthesize(_ context.Context, req SpeechRequest) ([]byte, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("mp3:" + req.Text), nil
}

func newTestNarrator(t *testing.T, synth Synthesizer, env config.Env) (*Narrator, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	n, err := NewNarrator(synth, config.TTS{AudioDir: t.TempDir(), MaxChars: 2500}, env, metrics)
	require.NoError(t, err)
	return n, metrics
}

func TestNarrateStoresAudioFile(t *testing.T) {
	synth := &recordingSynth{limit: 2500}
	n, metrics := newTestNarrator(t, synth, config.EnvDevelopment)

	audio, err := n.Narrate(context.Background(), "Once upon a time", story.VoiceGrandma, story.LanguageEnglish)
	require.NoError(t, err)
	require.Equal(t, story.AudioResource, audio.Kind())

	data, err := os.ReadFile(audio.Locator())
	require.NoError(t, err)
	assert.Equal(t, "mp3:Once upon a time", string(data))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Narrations.WithLabelValues("recording", "ok")))
}

func TestNarrateReusesCachedAudio(t *testing.T) {
	synth := &recordingSynth{limit: 2500}
	n, _ := newTestNarrator(t, synth, config.EnvDevelopment)

	first, err := n.Narrate(context.Background(), "Same text", story.VoiceCalmMom, story.LanguageEnglish)
	require.NoError(t, err)
	second, err := n.Narrate(context.Background(), "Same text", story.VoiceCalmMom, story.LanguageEnglish)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, synth.requests, 1)

	other, err := n.Narrate(context.Background(), "Same text", story.VoiceExcitedDad, story.LanguageEnglish)
	require.NoError(t, err)
	assert.NotEqual(t, first.Locator(), other.Locator())
	assert.Len(t, synth.requests, 2)
}

func TestNarrateTruncatesToLimit(t *testing.T) {
	synth := &recordingSynth{limit: 2500}
	n, _ := newTestNarrator(t, synth, config.EnvDevelopment)

	long := strings.Repeat("ש", 3000)
	_, err := n.Narrate(context.Background(), long, story.VoiceCalmMom, story.LanguageHebrew)
	require.NoError(t, err)
	require.Len(t, synth.requests, 1)
	assert.Len(t, []rune(synth.requests[0].Text), 2500)
	assert.Equal(t, story.LanguageHebrew, synth.requests[0].Language)
}

func TestNarrateProviderErrorYieldsNoAudio(t *testing.T) {
	synth := &recordingSynth{limit: 2500, err: errors.Join(story.ErrQuotaExceeded, errors.New("429"))}
	n, metrics := newTestNarrator(t, synth, config.EnvDevelopment)

	audio, err := n.Narrate(context.Background(), "text", story.VoiceCalmMom, story.LanguageEnglish)
	assert.ErrorIs(t, err, story.ErrQuotaExceeded)
	assert.True(t, audio.IsNone())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Narrations.WithLabelValues("recording", "quota")))
}

func TestNarrateWithoutProvider(t *testing.T) {
	dev, _ := newTestNarrator(t, nil, config.EnvDevelopment)
	audio, err := dev.Narrate(context.Background(), "text", story.VoiceCalmMom, story.LanguageEnglish)
	require.NoError(t, err)
	assert.True(t, audio.IsPlaceholder())
	assert.False(t, dev.Configured())
	assert.Equal(t, "placeholder", dev.Provider())

	prod, _ := newTestNarrator(t, nil, config.EnvProduction)
	audio, err = prod.Narrate(context.Background(), "text", story.VoiceCalmMom, story.LanguageEnglish)
	assert.ErrorIs(t, err, story.ErrNotConfigured)
	assert.True(t, audio.IsNone())
}

func TestNarrateRejectsEmptyText(t *testing.T) {
	synth := &recordingSynth{limit: 2500}
	n, _ := newTestNarrator(t, synth, config.EnvDevelopment)

	_, err := n.Narrate(context.Background(), "  ", story.VoiceCalmMom, story.LanguageEnglish)
	assert.ErrorIs(t, err, story.ErrInvalidParams)
	assert.Empty(t, synth.requests)
}

func TestNewSynthesizerSelection(t *testing.T) {
	ctx := context.Background()

	synth, err := NewSynthesizer(ctx, config.TTS{Provider: "auto"}, config.Credentials{SpeechKey: "xi"})
	require.NoError(t, err)
	assert.Equal(t, "elevenlabs", synth.Name())

	synth, err = NewSynthesizer(ctx, config.TTS{Provider: "auto"}, config.Credentials{})
	require.NoError(t, err)
	assert.Nil(t, synth)

	synth, err = NewSynthesizer(ctx, config.TTS{Provider: "elevenlabs"}, config.Credentials{})
	require.NoError(t, err)
	assert.Nil(t, synth)

	synth, err = NewSynthesizer(ctx, config.TTS{Provider: "placeholder"}, config.Credentials{SpeechKey: "xi"})
	require.NoError(t, err)
	assert.Nil(t, synth)

	_, err = NewSynthesizer(ctx, config.TTS{Provider: "espeak"}, config.Credentials{})
	assert.Error(t, err)
}

func TestRegenerateBypassesCache(t *testing.T) {
	synth := &recordingSynth{limit: 2500}
	n, _ := newTestNarrator(t, synth, config.EnvDevelopment)

	first, err := n.Narrate(context.Background(), "Same text", story.VoiceCalmMom, story.LanguageEnglish)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first.Locator(), []byte("bad clip"), 0644))

	again, err := n.Regenerate(context.Background(), "Same text", story.VoiceCalmMom, story.LanguageEnglish)
	require.NoError(t, err)
	assert.Len(t, synth.requests, 2)
	assert.Equal(t, first.Locator(), again.Locator())

	data, err := os.ReadFile(again.Locator())
	require.NoError(t, err)
	assert.Equal(t, "mp3:Same text", string(data))
}

func TestNarratorCloseWithoutProvider(t *testing.T) {
	n, _ := newTestNarrator(t, nil, config.EnvDevelopment)
	assert.NoError(t, n.Close())

	synth := &recordingSynth{limit: 2500}
	n, _ = newTestNarrator(t, synth, config.EnvDevelopment)
	assert.NoError(t, n.Close())
}

func TestTruncateBytesKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ab", truncateBytes("ab🌙", 4))
	assert.Equal(t, "ab🌙", truncateBytes("ab🌙", 6))
	assert.Equal(t, "ש", truncateBytes("שש", 3))
	assert.Equal(t, "hello", truncateBytes("hello", 0))
}
