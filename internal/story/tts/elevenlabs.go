package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"

	"github.com/sirupsen/logrus"
)

const (
	// ElevenLabsBaseURL is the public API root
	ElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	elevenLabsLimit   = 2500
	elevenLabsModel   = "eleven_monolingual_v1"
	elevenLabsTimeout = 60 * time.Second
)

// ElevenLabsVoices are the stock voices behind each narration persona
var ElevenLabsVoices = VoiceTable{
	story.VoiceCalmMom:              "EXAVITQu4vr4xnSDxMaL",
	story.VoiceExcitedDad:           "TX3LPaxmHKxFdv7VOQHJ",
	story.VoiceWarmTeacher:          "pFZP5JQG7iQjIQuC4Bku",
	story.VoiceGrandma:              "XB0fDUnXU5powFXDhCwa",
	story.VoiceProfessionalNarrator: "onwK4e9ZLuTAKqWW03F9",
}

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API
type ElevenLabs struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	modelID    string
	limit      int
	settings   voiceSettings
	voices     VoiceTable
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type elevenLabsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func NewElevenLabs(cfg config.TTS, apiKey string) *ElevenLabs {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = ElevenLabsBaseURL
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = elevenLabsModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = elevenLabsTimeout
	}
	limit := cfg.MaxChars
	if limit <= 0 || limit > elevenLabsLimit {
		limit = elevenLabsLimit
	}

	return &ElevenLabs{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
		modelID:    modelID,
		limit:      limit,
		settings: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
		},
		voices: ElevenLabsVoices,
	}
}

func (e *ElevenLabs) Name() string { return string(ProviderElevenLabs) }

func (e *ElevenLabs) Limit() int { return e.limit }

func (e *ElevenLabs) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	voiceID := e.voices.Lookup(req.Style)
	body, err := json.Marshal(elevenLabsRequest{
		Text:          req.Text,
		ModelID:       e.modelID,
		VoiceSettings: e.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.baseURL, voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	logrus.WithFields(logrus.Fields{
		"voice_style": req.Style,
		"voice_id":    voiceID,
		"chars":       len([]rune(req.Text)),
	}).Debug("Requesting ElevenLabs synthesis")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: elevenlabs: %v", story.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyStatus(resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: elevenlabs: read audio: %v", story.ErrProviderUnavailable, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: elevenlabs returned no audio", story.ErrGenerationFailed)
	}
	return audio, nil
}

func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: elevenlabs (status %d): %s", story.ErrUnauthorized, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: elevenlabs (status %d): %s", story.ErrQuotaExceeded, status, body)
	case status >= 500:
		return fmt.Errorf("%w: elevenlabs (status %d): %s", story.ErrProviderUnavailable, status, body)
	}
	return fmt.Errorf("%w: elevenlabs (status %d): %s", story.ErrGenerationFailed, status, body)
}
