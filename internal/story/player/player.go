package player

import (
	"fmt"
	"sync"

	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot is the observable state of the controller. Err is set when the
// bound audio failed to load or to start.
type Snapshot struct {
	State    State
	Progress float64
	Audio    story.Audio
	Err      error
}

// Controller drives play, pause and progress for one bound audio value at a
// time. Every Bind starts a new generation and events from older
// generations are dropped.
type Controller struct {
	factory DriverFactory
	metrics *observability.Metrics

	mu         sync.Mutex
	generation uint64
	driver     Driver
	snap       Snapshot
	listeners  []*listener
}

type listener struct {
	fn func(Snapshot)
}

func NewController(factory DriverFactory, metrics *observability.Metrics) *Controller {
	return &Controller{
		factory: factory,
		metrics: metrics,
		snap:    Snapshot{State: StateIdle, Audio: story.NoAudio()},
	}
}

// Subscribe registers fn for every state change. The returned function
// removes it again.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	l := &listener{fn: fn}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, existing := range c.listeners {
			if existing == l {
				// copy so slices handed to notify stay intact
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Bind tears down the current audio unconditionally and loads audio. Binding
// NoAudio leaves the controller Idle.
func (c *Controller) Bind(audio story.Audio) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	previous := c.driver
	c.driver = nil

	var driver Driver
	var err error
	if audio.IsNone() {
		c.snap = Snapshot{State: StateIdle, Audio: audio}
	} else {
		driver, err = c.factory(audio)
		if err != nil {
			c.snap = Snapshot{State: StateIdle, Audio: audio, Err: err}
		} else {
			c.driver = driver
			c.snap = Snapshot{State: StateLoading, Audio: audio}
		}
	}
	snap := c.snap
	listeners := c.listeners
	c.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to release previous audio")
		}
	}
	c.metrics.PlaybackEvent(EventBound.String())
	notify(listeners, snap)

	if driver == nil {
		return
	}
	if err := driver.Load(c.emitter(gen)); err != nil {
		c.handle(gen, Event{Kind: EventFailed, Err: err})
	}
}

// Toggle starts or pauses playback. Without playable audio it returns
// ErrAudioUnavailable and the state is left as is.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	gen := c.generation
	driver := c.driver
	from := c.snap.State

	switch from {
	case StateReady, StateEnded:
		c.snap.State = StatePlaying
		c.snap.Err = nil
	case StatePlaying:
		c.snap.State = StateReady
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: nothing playable is bound", story.ErrAudioUnavailable)
	}
	snap := c.snap
	listeners := c.listeners
	c.mu.Unlock()

	c.metrics.PlaybackEvent(EventToggled.String())
	notify(listeners, snap)

	var err error
	if from == StatePlaying {
		err = driver.Pause()
	} else {
		err = driver.Play()
	}
	if err == nil {
		return nil
	}

	// never leave the controller Playing when nothing is audible
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return err
	}
	c.snap.State = StateReady
	c.snap.Err = err
	snap = c.snap
	c.mu.Unlock()

	logrus.WithError(err).Warn("Playback failed")
	notify(listeners, snap)
	return fmt.Errorf("%w: %v", story.ErrAudioUnavailable, err)
}

// Close releases the bound audio and returns to Idle
func (c *Controller) Close() {
	c.Bind(story.NoAudio())
}

func (c *Controller) emitter(gen uint64) func(Event) {
	return func(ev Event) {
		c.handle(gen, ev)
	}
}

func (c *Controller) handle(gen uint64, ev Event) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	var snaps []Snapshot
	var rewind, release Driver

	switch ev.Kind {
	case EventPlayable:
		if c.snap.State != StateLoading {
			c.mu.Unlock()
			return
		}
		c.snap.State = StateReady
		c.snap.Progress = 0
		snaps = append(snaps, c.snap)

	case EventFailed:
		release = c.driver
		c.driver = nil
		c.snap = Snapshot{State: StateIdle, Audio: c.snap.Audio, Err: ev.Err}
		snaps = append(snaps, c.snap)

	case EventTick:
		if c.snap.State != StatePlaying {
			c.mu.Unlock()
			return
		}
		c.snap.Progress = clamp(ev.Progress)
		snaps = append(snaps, c.snap)

	case EventEnded:
		if c.snap.State != StatePlaying {
			c.mu.Unlock()
			return
		}
		c.snap.State = StateEnded
		c.snap.Progress = 100
		snaps = append(snaps, c.snap)

		c.snap.State = StateReady
		c.snap.Progress = 0
		snaps = append(snaps, c.snap)
		rewind = c.driver

	default:
		c.mu.Unlock()
		return
	}
	listeners := c.listeners
	c.mu.Unlock()

	if ev.Kind != EventTick {
		c.metrics.PlaybackEvent(ev.Kind.String())
	}
	if ev.Kind == EventFailed {
		logrus.WithError(ev.Err).Warn("Audio could not be loaded")
	}
	if release != nil {
		release.Close()
	}
	if rewind != nil {
		if err := rewind.Rewind(); err != nil {
			logrus.WithError(err).Warn("Failed to rewind audio")
		}
	}
	for _, snap := range snaps {
		notify(listeners, snap)
	}
}

func notify(listeners []*listener, snap Snapshot) {
	for _, l := range listeners {
		l.fn(snap)
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
