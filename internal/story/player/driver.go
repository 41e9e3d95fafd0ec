package player

import (
	"fmt"
	"time"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"
)

type EventKind int

const (
	EventBound EventKind = iota
	EventPlayable
	EventFailed
	EventToggled
	EventTick
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventBound:
		return "bound"
	case EventPlayable:
		return "playable"
	case EventFailed:
		return "failed"
	case EventToggled:
		return "toggled"
	case EventTick:
		return "tick"
	case EventEnded:
		return "ended"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is reported by a Driver. Progress is a percentage and only set on
// ticks.
type Event struct {
	Kind     EventKind
	Progress float64
	Err      error
}

// Driver plays one audio resource. Drivers report through the emit function
// handed to Load and must not emit from inside Play, Pause, Rewind or Close.
type Driver interface {
	// Load prepares the resource and emits EventPlayable or EventFailed
	Load(emit func(Event)) error
	Play() error
	Pause() error
	// Rewind moves back to the start, leaving playback paused
	Rewind() error
	Close() error
}

// DriverFactory builds the driver for a bound audio value
type DriverFactory func(audio story.Audio) (Driver, error)

// NewDriverFactory plays placeholders with a simulated ramp and resources
// through the system speaker
func NewDriverFactory(cfg config.Player) DriverFactory {
	return func(audio story.Audio) (Driver, error) {
		switch audio.Kind() {
		case story.AudioPlaceholder:
			return NewSimulatedDriver(cfg.PlaceholderStep, cfg.PlaceholderInterval), nil
		case story.AudioResource:
			return NewBeepDriver(audio.Locator()), nil
		}
		return nil, story.ErrAudioUnavailable
	}
}

const (
	defaultPlaceholderStep     = 1.0
	defaultPlaceholderInterval = 300 * time.Millisecond
)
