package story

import (
	"encoding/json"
	"fmt"
)

// AudioKind tags the narration attached to a story
type AudioKind int

const (
	AudioNone AudioKind = iota
	AudioPlaceholder
	AudioResource
)

func (k AudioKind) String() string {
	switch k {
	case AudioPlaceholder:
		return "placeholder"
	case AudioResource:
		return "resource"
	default:
		return "none"
	}
}

func parseAudioKind(s string) (AudioKind, error) {
	switch s {
	case "", "none":
		return AudioNone, nil
	case "placeholder":
		return AudioPlaceholder, nil
	case "resource":
		return AudioResource, nil
	}
	return AudioNone, fmt.Errorf("unknown audio kind %q", s)
}

// Audio is either no narration, the demo placeholder, or a playable resource.
// The zero value is NoAudio.
type Audio struct {
	kind    AudioKind
	locator string
}

func NoAudio() Audio { return Audio{} }

func PlaceholderAudio() Audio { return Audio{kind: AudioPlaceholder} }

// ResourceAudio wraps a resolvable locator, an empty locator yields NoAudio
func ResourceAudio(locator string) Audio {
	if locator == "" {
		return NoAudio()
	}
	return Audio{kind: AudioResource, locator: locator}
}

func (a Audio) Kind() AudioKind { return a.kind }

// Locator is empty unless Kind is AudioResource
func (a Audio) Locator() string { return a.locator }

func (a Audio) IsNone() bool { return a.kind == AudioNone }

func (a Audio) IsPlaceholder() bool { return a.kind == AudioPlaceholder }

func (a Audio) String() string {
	if a.kind == AudioResource {
		return a.locator
	}
	return a.kind.String()
}

type audioJSON struct {
	Kind    string `json:"kind"`
	Locator string `json:"locator,omitempty"`
}

func (a Audio) MarshalJSON() ([]byte, error) {
	return json.Marshal(audioJSON{Kind: a.kind.String(), Locator: a.locator})
}

func (a *Audio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = NoAudio()
		return nil
	}
	var raw audioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	kind, err := parseAudioKind(raw.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case AudioResource:
		if raw.Locator == "" {
			return fmt.Errorf("resource audio without locator")
		}
		*a = ResourceAudio(raw.Locator)
	case AudioPlaceholder:
		*a = PlaceholderAudio()
	default:
		*a = NoAudio()
	}
	return nil
}
