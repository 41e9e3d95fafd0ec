package tts

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"

	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSpeechClient struct {
	last   *texttospeechpb.SynthesizeSpeechRequest
	err    error
	closed bool
}

func (f *fakeSpeechClient) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}, nil
}

func (f *fakeSpeechClient) Close() error {
	f.closed = true
	return nil
}

func TestGoogleClassicVoiceSelection(t *testing.T) {
	client := &fakeSpeechClient{}
	g := newGoogleClassic(client)

	audio, err := g.Synthesize(context.Background(), SpeechRequest{
		Text:     "Hola",
		Style:    story.VoiceCalmMom,
		Language: story.LanguageSpanish,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
	assert.Equal(t, "es-ES", client.last.GetVoice().GetLanguageCode())
	assert.Equal(t, "es-ES-Chirp3-HD-Aoede", client.last.GetVoice().GetName())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, client.last.GetAudioConfig().GetAudioEncoding())

	_, err = g.Synthesize(context.Background(), SpeechRequest{Text: "Hi", Style: "Robot"})
	require.NoError(t, err)
	assert.Equal(t, "en-US-Chirp3-HD-Charon", client.last.GetVoice().GetName())
}

func TestGoogleClassicErrorClassification(t *testing.T) {
	cases := map[codes.Code]error{
		codes.Unauthenticated:   story.ErrUnauthorized,
		codes.PermissionDenied:  story.ErrUnauthorized,
		codes.ResourceExhausted: story.ErrQuotaExceeded,
		codes.Unavailable:       story.ErrProviderUnavailable,
		codes.InvalidArgument:   story.ErrGenerationFailed,
	}
	for code, want := range cases {
		t.Run(code.String(), func(t *testing.T) {
			g := newGoogleClassic(&fakeSpeechClient{err: status.Error(code, "boom")})
			_, err := g.Synthesize(context.Background(), SpeechRequest{Text: "hi"})
			assert.ErrorIs(t, err, want)
		})
	}
}

func TestGoogleClassicRequestStaysWithinByteCap(t *testing.T) {
	cases := map[string]string{
		"hebrew": strings.Repeat("ש", 6000),
		"emoji":  strings.Repeat("a🌙", 2000),
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			client := &fakeSpeechClient{}
			n, _ := newTestNarrator(t, newGoogleClassic(client), config.EnvDevelopment)
			n.maxChars = 5000

			_, err := n.Narrate(context.Background(), text, story.VoiceCalmMom, story.LanguageHebrew)
			require.NoError(t, err)

			sent := client.last.GetInput().GetText()
			assert.LessOrEqual(t, len(sent), googleByteLimit)
			assert.Greater(t, len(sent), googleByteLimit-4)
			assert.True(t, utf8.ValidString(sent))
			assert.True(t, strings.HasPrefix(text, sent))
		})
	}
}

func TestNarratorClosesGoogleClient(t *testing.T) {
	client := &fakeSpeechClient{}
	n, _ := newTestNarrator(t, newGoogleClassic(client), config.EnvDevelopment)

	require.NoError(t, n.Close())
	assert.True(t, client.closed)
}
