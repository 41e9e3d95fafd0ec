package tts

import (
	"context"
	"fmt"
	"strings"

	"dreamtales/internal/domain/story"

	"cloud.google.com/go/texttospeech/apiv1"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Cloud Text-to-Speech caps the input at 5000 bytes, not characters
const googleByteLimit = 5000

// GoogleChirpVoices are Chirp 3 HD voice names, prefixed with the language
// code at request time
var GoogleChirpVoices = VoiceTable{
	story.VoiceCalmMom:              "Chirp3-HD-Aoede",
	story.VoiceExcitedDad:           "Chirp3-HD-Puck",
	story.VoiceWarmTeacher:          "Chirp3-HD-Kore",
	story.VoiceGrandma:              "Chirp3-HD-Leda",
	story.VoiceProfessionalNarrator: "Chirp3-HD-Charon",
}

var googleLanguageCodes = map[story.Language]string{
	story.LanguageEnglish: "en-US",
	story.LanguageHebrew:  "he-IL",
	story.LanguageSpanish: "es-ES",
}

type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleClassic synthesizes MP3 speech with Cloud Text-to-Speech. Credentials
// come from the application default chain.
type GoogleClassic struct {
	client speechClient
	voices VoiceTable
}

func NewGoogleClassic(ctx context.Context) (*GoogleClassic, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create TTS client: %v", story.ErrNotConfigured, err)
	}
	return newGoogleClassic(client), nil
}

func newGoogleClassic(client speechClient) *GoogleClassic {
	return &GoogleClassic{client: client, voices: GoogleChirpVoices}
}

func (g *GoogleClassic) Name() string { return string(ProviderGoogle) }

// Limit is never reached before ByteLimit, a character is at least one byte
func (g *GoogleClassic) Limit() int { return googleByteLimit }

func (g *GoogleClassic) ByteLimit() int { return googleByteLimit }

func (g *GoogleClassic) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	languageCode, ok := googleLanguageCodes[req.Language]
	if !ok {
		languageCode = googleLanguageCodes[story.LanguageEnglish]
	}
	voice := languageCode + "-" + g.voices.Lookup(req.Style)

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices reject speaking rate and pitch
	if !strings.Contains(strings.ToLower(voice), "chirp") {
		audioCfg.SpeakingRate = 1.0
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			Name:         voice,
		},
		AudioConfig: audioCfg,
	})
	if err != nil {
		return nil, classifyRPC(err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: google tts returned no audio", story.ErrGenerationFailed)
	}

	logrus.WithFields(logrus.Fields{
		"voice": voice,
		"bytes": len(resp.GetAudioContent()),
	}).Debug("Synthesized speech with Google TTS")
	return resp.GetAudioContent(), nil
}

func (g *GoogleClassic) Close() error {
	return g.client.Close()
}

func classifyRPC(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: google tts: %v", story.ErrUnauthorized, err)
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: google tts: %v", story.ErrQuotaExceeded, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal:
		return fmt.Errorf("%w: google tts: %v", story.ErrProviderUnavailable, err)
	case codes.Canceled:
		return err
	}
	return fmt.Errorf("%w: google tts: %v", story.ErrGenerationFailed, err)
}
