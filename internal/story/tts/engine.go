package tts

import (
	"context"
	"fmt"

	"dreamtales/internal/config"

	"github.com/sirupsen/logrus"
)

type Provider string

const (
	ProviderAuto        Provider = "auto"
	ProviderElevenLabs  Provider = "elevenlabs"
	ProviderGoogle      Provider = "google"
	ProviderPlaceholder Provider = "placeholder"
)

func (p Provider) String() string {
	return string(p)
}

// NewSynthesizer picks the speech provider. A nil Synthesizer with a nil
// error means no provider is usable; the Narrator then applies the
// missing-credential policy.
func NewSynthesizer(ctx context.Context, cfg config.TTS, creds config.Credentials) (Synthesizer, error) {
	provider := Provider(cfg.Provider)
	if provider == ProviderAuto || provider == "" {
		provider = bestProvider(creds)
	}

	switch provider {
	case ProviderElevenLabs:
		if !creds.HasSpeech() {
			logrus.Warn("ElevenLabs selected but no API key is configured")
			return nil, nil
		}
		return NewElevenLabs(cfg, creds.SpeechKey), nil

	case ProviderGoogle:
		g, err := NewGoogleClassic(ctx)
		if err != nil {
			return nil, err
		}
		return g, nil

	case ProviderPlaceholder:
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.Provider)
	}
}

// bestProvider prefers ElevenLabs, then Google, then the placeholder
func bestProvider(creds config.Credentials) Provider {
	switch {
	case creds.HasSpeech():
		return ProviderElevenLabs
	case creds.HasGoogle():
		return ProviderGoogle
	default:
		return ProviderPlaceholder
	}
}
