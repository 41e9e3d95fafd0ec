package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"
	"dreamtales/internal/storage"

	"github.com/sirupsen/logrus"
)

// Narrator produces the audio for a story's text. It never touches the
// story collection; callers attach the returned Audio themselves.
type Narrator struct {
	synth    Synthesizer
	env      config.Env
	dir      string
	maxChars int
	metrics  *observability.Metrics
}

// NewNarrator wires synth, which may be nil when no provider is configured
func NewNarrator(synth Synthesizer, cfg config.TTS, env config.Env, metrics *observability.Metrics) (*Narrator, error) {
	if synth != nil {
		if err := os.MkdirAll(cfg.AudioDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audio directory %s: %w", cfg.AudioDir, err)
		}
	}
	return &Narrator{
		synth:    synth,
		env:      env,
		dir:      cfg.AudioDir,
		maxChars: cfg.MaxChars,
		metrics:  metrics,
	}, nil
}

// Provider names the synthesizer, or "placeholder" when there is none
func (n *Narrator) Provider() string {
	if n.synth == nil {
		return string(ProviderPlaceholder)
	}
	return n.synth.Name()
}

// Configured reports whether a real speech provider is available
func (n *Narrator) Configured() bool {
	return n.synth != nil
}

// Narrate synthesizes text in the given voice. Text beyond the provider
// limit is cut off. Without a provider, development yields placeholder
// audio and production fails with ErrNotConfigured.
func (n *Narrator) Narrate(ctx context.Context, text string, style story.VoiceStyle, language story.Language) (story.Audio, error) {
	audio, err := n.narrate(ctx, text, style, language, false)
	n.metrics.Narrated(n.Provider(), err)
	return audio, err
}

// Regenerate is Narrate without the file cache: the provider is always
// called and a cached clip for the same input is replaced
func (n *Narrator) Regenerate(ctx context.Context, text string, style story.VoiceStyle, language story.Language) (story.Audio, error) {
	audio, err := n.narrate(ctx, text, style, language, true)
	n.metrics.Narrated(n.Provider(), err)
	return audio, err
}

// Close releases the synthesizer's connection when it holds one
func (n *Narrator) Close() error {
	if closer, ok := n.synth.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (n *Narrator) narrate(ctx context.Context, text string, style story.VoiceStyle, language story.Language, refresh bool) (story.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return story.NoAudio(), fmt.Errorf("%w: nothing to narrate", story.ErrInvalidParams)
	}

	if n.synth == nil {
		if n.env == config.EnvProduction {
			return story.NoAudio(), fmt.Errorf("%w: no speech provider credential", story.ErrNotConfigured)
		}
		logrus.Warn("No speech provider configured, using placeholder audio")
		return story.PlaceholderAudio(), nil
	}

	limit := n.synth.Limit()
	if n.maxChars > 0 && n.maxChars < limit {
		limit = n.maxChars
	}
	limited := truncateRunes(text, limit)
	if bl, ok := n.synth.(byteLimited); ok {
		limited = truncateBytes(limited, bl.ByteLimit())
	}

	log := logrus.WithFields(logrus.Fields{
		"provider":    n.synth.Name(),
		"voice_style": style,
		"chars":       utf8.RuneCountInString(limited),
		"bytes":       len(limited),
		"truncated":   len(limited) < len(text),
	})

	path := filepath.Join(n.dir, n.fileName(limited, style, language))
	if info, err := os.Stat(path); err == nil && info.Size() > 0 && !refresh {
		log.WithField("path", path).Info("Using cached narration")
		return story.ResourceAudio(path), nil
	}

	log.Info("Generating narration")
	data, err := n.synth.Synthesize(ctx, SpeechRequest{
		Text:     limited,
		Style:    style,
		Language: language,
	})
	if err != nil {
		log.WithError(err).Warn("Narration failed")
		return story.NoAudio(), err
	}

	if err := storage.WriteAtomic(path, data); err != nil {
		return story.NoAudio(), fmt.Errorf("failed to store narration: %w", err)
	}
	log.WithField("path", path).Info("Cached narration")
	return story.ResourceAudio(path), nil
}

// fileName identifies a narration by provider and a hash of its inputs
func (n *Narrator) fileName(text string, style story.VoiceStyle, language story.Language) string {
	contentHash := md5Sum(strings.Join([]string{string(style), string(language), text}, "\x00"))[:16]
	return fmt.Sprintf("%s_%s.mp3", n.synth.Name(), contentHash)
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
