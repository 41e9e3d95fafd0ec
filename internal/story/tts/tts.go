package tts

import (
	"context"
	"unicode/utf8"

	"dreamtales/internal/domain/story"
)

// SpeechRequest is one synthesis call. Text is already within the
// synthesizer's limit.
type SpeechRequest struct {
	Text     string
	Style    story.VoiceStyle
	Language story.Language
}

// Synthesizer turns text into MP3 bytes
type Synthesizer interface {
	Name() string
	// Limit is the longest text, in characters, accepted in one request
	Limit() int
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// byteLimited is implemented by synthesizers whose request cap is counted in
// UTF-8 bytes. The narrator applies it after the character limit.
type byteLimited interface {
	ByteLimit() int
}

// VoiceTable maps voice styles onto provider voice ids
type VoiceTable map[story.VoiceStyle]string

// Lookup returns the voice for style, or the default style's voice when the
// style is unknown
func (t VoiceTable) Lookup(style story.VoiceStyle) string {
	if id, ok := t[style]; ok {
		return id
	}
	return t[story.DefaultVoiceStyle]
}

// truncateRunes cuts s to at most limit characters without splitting a rune
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// truncateBytes cuts s to at most limit bytes, backing off to a rune boundary
func truncateBytes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
