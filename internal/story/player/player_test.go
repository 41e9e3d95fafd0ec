package player

import (
	"errors"
	"sync"
	"testing"
	"time"

	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	mu      sync.Mutex
	emit    func(Event)
	loadErr error
	playErr error
	calls   []string
}

func (f *fakeDriver) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeDriver) Load(emit func(Event)) error {
	f.record("load")
	f.emit = emit
	return f.loadErr
}

func (f *fakeDriver) Play() error   { f.record("play"); return f.playErr }
func (f *fakeDriver) Pause() error  { f.record("pause"); return nil }
func (f *fakeDriver) Rewind() error { f.record("rewind"); return nil }
func (f *fakeDriver) Close() error  { f.record("close"); return nil }

func (f *fakeDriver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeFactory struct {
	drivers []*fakeDriver
	next    func() *fakeDriver
}

func (f *fakeFactory) build(audio story.Audio) (Driver, error) {
	d := &fakeDriver{}
	if f.next != nil {
		d = f.next()
	}
	f.drivers = append(f.drivers, d)
	return d, nil
}

func newTestController(t *testing.T) (*Controller, *fakeFactory, *observability.Metrics) {
	t.Helper()
	factory := &fakeFactory{}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	return NewController(factory.build, metrics), factory, metrics
}

func TestToggleWithoutAudioIsUnavailable(t *testing.T) {
	c, factory, _ := newTestController(t)

	err := c.Toggle()
	assert.ErrorIs(t, err, story.ErrAudioUnavailable)
	assert.Equal(t, StateIdle, c.Snapshot().State)

	c.Bind(story.NoAudio())
	assert.ErrorIs(t, c.Toggle(), story.ErrAudioUnavailable)
	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.Empty(t, factory.drivers)
}

func TestToggleWhileLoadingIsUnavailable(t *testing.T) {
	c, factory, _ := newTestController(t)
	c.Bind(story.ResourceAudio("/tmp/a.mp3"))

	assert.Equal(t, StateLoading, c.Snapshot().State)
	assert.ErrorIs(t, c.Toggle(), story.ErrAudioUnavailable)
	assert.Equal(t, []string{"load"}, factory.drivers[0].Calls())
}

func TestRebindBeforeReadyDropsStaleEvents(t *testing.T) {
	c, factory, _ := newTestController(t)
	var seen []Snapshot
	c.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	c.Bind(story.ResourceAudio("/tmp/first.mp3"))
	c.Bind(story.ResourceAudio("/tmp/second.mp3"))
	require.Len(t, factory.drivers, 2)
	first, second := factory.drivers[0], factory.drivers[1]
	assert.Equal(t, []string{"load", "close"}, first.Calls())

	first.emit(Event{Kind: EventPlayable})
	first.emit(Event{Kind: EventTick, Progress: 50})
	assert.Equal(t, StateLoading, c.Snapshot().State)
	assert.Equal(t, "/tmp/second.mp3", c.Snapshot().Audio.Locator())

	second.emit(Event{Kind: EventPlayable})
	assert.Equal(t, StateReady, c.Snapshot().State)

	require.NoError(t, c.Toggle())
	first.emit(Event{Kind: EventEnded})
	assert.Equal(t, StatePlaying, c.Snapshot().State)

	for _, s := range seen {
		if s.State == StateReady || s.State == StatePlaying {
			assert.Equal(t, "/tmp/second.mp3", s.Audio.Locator())
		}
	}
}

func TestFullPlaybackCycle(t *testing.T) {
	c, factory, metrics := newTestController(t)
	var states []State
	c.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	c.Bind(story.PlaceholderAudio())
	d := factory.drivers[0]
	d.emit(Event{Kind: EventPlayable})

	require.NoError(t, c.Toggle())
	d.emit(Event{Kind: EventTick, Progress: 40})
	assert.Equal(t, 40.0, c.Snapshot().Progress)

	require.NoError(t, c.Toggle())
	assert.Equal(t, StateReady, c.Snapshot().State)
	assert.Equal(t, 40.0, c.Snapshot().Progress, "pause keeps progress")

	d.emit(Event{Kind: EventTick, Progress: 45})
	assert.Equal(t, 40.0, c.Snapshot().Progress, "ticks ignored while paused")

	require.NoError(t, c.Toggle())
	d.emit(Event{Kind: EventTick, Progress: 100})
	d.emit(Event{Kind: EventEnded})

	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, 0.0, snap.Progress)
	assert.Equal(t, []string{"load", "play", "pause", "play", "rewind"}, d.Calls())

	require.NoError(t, c.Toggle())
	assert.Equal(t, StatePlaying, c.Snapshot().State)
	assert.Equal(t, 0.0, c.Snapshot().Progress)

	assert.Equal(t, []State{
		StateLoading, StateReady,
		StatePlaying, StatePlaying, StateReady,
		StatePlaying, StatePlaying, StateEnded, StateReady,
		StatePlaying,
	}, states)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PlaybackEvents.WithLabelValues("ended")))
}

func TestLoadFailureReturnsToIdle(t *testing.T) {
	c, factory, _ := newTestController(t)
	boom := errors.New("not an mp3")
	factory.next = func() *fakeDriver { return &fakeDriver{loadErr: boom} }

	c.Bind(story.ResourceAudio("/tmp/broken.mp3"))

	snap := c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Equal(t, []string{"load", "close"}, factory.drivers[0].Calls())
	assert.ErrorIs(t, c.Toggle(), story.ErrAudioUnavailable)
}

func TestPlayFailureIsNotStuckPlaying(t *testing.T) {
	c, factory, _ := newTestController(t)
	boom := errors.New("device busy")
	factory.next = func() *fakeDriver { return &fakeDriver{playErr: boom} }

	c.Bind(story.ResourceAudio("/tmp/a.mp3"))
	factory.drivers[0].emit(Event{Kind: EventPlayable})

	err := c.Toggle()
	assert.ErrorIs(t, err, story.ErrAudioUnavailable)
	snap := c.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
}

func TestCloseReleasesDriver(t *testing.T) {
	c, factory, _ := newTestController(t)
	c.Bind(story.PlaceholderAudio())
	c.Close()

	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.Contains(t, factory.drivers[0].Calls(), "close")
}

func TestSimulatedDriverRampsToEnd(t *testing.T) {
	c := NewController(func(story.Audio) (Driver, error) {
		return NewSimulatedDriver(25, time.Millisecond), nil
	}, nil)

	ended := make(chan struct{}, 1)
	c.Subscribe(func(s Snapshot) {
		if s.State == StateEnded {
			ended <- struct{}{}
		}
	})

	c.Bind(story.PlaceholderAudio())
	assert.Equal(t, StateReady, c.Snapshot().State, "placeholder is playable immediately")
	require.NoError(t, c.Toggle())

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("placeholder playback never ended")
	}
	assert.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.State == StateReady && s.Progress == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSimulatedDriverPauseHoldsProgress(t *testing.T) {
	d := NewSimulatedDriver(1, time.Millisecond)
	var mu sync.Mutex
	var ticks []float64
	require.NoError(t, d.Load(func(ev Event) {
		if ev.Kind == EventTick {
			mu.Lock()
			ticks = append(ticks, ev.Progress)
			mu.Unlock()
		}
	}))

	require.NoError(t, d.Play())
	assert.Eventually(t, func() bool { return d.Progress() >= 5 }, time.Second, time.Millisecond)
	require.NoError(t, d.Pause())
	held := d.Progress()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, held, d.Progress())
	assert.Less(t, held, 100.0)
	mu.Lock()
	assert.NotEmpty(t, ticks)
	mu.Unlock()

	require.NoError(t, d.Rewind())
	assert.Equal(t, 0.0, d.Progress())
	require.NoError(t, d.Close())
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	c, _, _ := newTestController(t)
	calls := 0
	cancel := c.Subscribe(func(Snapshot) { calls++ })

	c.Bind(story.PlaceholderAudio())
	assert.Equal(t, 1, calls)

	cancel()
	c.Bind(story.NoAudio())
	assert.Equal(t, 1, calls)
}
