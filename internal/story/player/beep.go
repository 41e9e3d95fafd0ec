package player

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

const progressInterval = 250 * time.Millisecond

var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// initSpeaker opens the output device once. Later streams are resampled to
// its rate.
func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, err
	}
	speakerRate = rate
	return rate, nil
}

// BeepDriver plays an MP3 file through the system speaker
type BeepDriver struct {
	path string

	mu       sync.Mutex
	emit     func(Event)
	streamer beep.StreamSeekCloser
	output   beep.Streamer
	ctrl     *beep.Ctrl
	queued   bool
	closed   bool
	stopTick chan struct{}
}

func NewBeepDriver(path string) *BeepDriver {
	return &BeepDriver{path: path}
}

func (d *BeepDriver) Load(emit func(Event)) error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("failed to open audio %s: %w", d.path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", d.path, err)
	}

	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return fmt.Errorf("failed to open speaker: %w", err)
	}

	var output beep.Streamer = streamer
	if rate != format.SampleRate {
		output = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	d.mu.Lock()
	d.emit = emit
	d.streamer = streamer
	d.output = output
	d.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"path":        d.path,
		"sample_rate": format.SampleRate,
		"samples":     streamer.Len(),
	}).Debug("Loaded audio")

	emit(Event{Kind: EventPlayable})
	return nil
}

func (d *BeepDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.streamer == nil {
		return fmt.Errorf("audio %s is not loaded", d.path)
	}

	if d.queued {
		speaker.Lock()
		d.ctrl.Paused = false
		speaker.Unlock()
	} else {
		d.ctrl = &beep.Ctrl{Streamer: d.output, Paused: false}
		d.queued = true
		speaker.Play(beep.Seq(d.ctrl, beep.Callback(func() {
			// runs on the speaker goroutine with the speaker locked
			go d.finished()
		})))
	}

	d.startTicker()
	return nil
}

func (d *BeepDriver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTicker()
	if d.ctrl != nil {
		speaker.Lock()
		d.ctrl.Paused = true
		speaker.Unlock()
	}
	return nil
}

func (d *BeepDriver) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopTicker()
	if d.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	if d.ctrl != nil {
		d.ctrl.Paused = true
	}
	return d.streamer.Seek(0)
}

func (d *BeepDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.emit = nil
	d.stopTicker()

	speaker.Lock()
	if d.ctrl != nil {
		d.ctrl.Streamer = nil
	}
	speaker.Unlock()

	if d.streamer != nil {
		return d.streamer.Close()
	}
	return nil
}

func (d *BeepDriver) finished() {
	d.mu.Lock()
	d.queued = false
	d.stopTicker()
	emit := d.emit
	closed := d.closed
	d.mu.Unlock()

	if closed || emit == nil {
		return
	}
	emit(Event{Kind: EventTick, Progress: 100})
	emit(Event{Kind: EventEnded})
}

// startTicker must be called with mu held
func (d *BeepDriver) startTicker() {
	if d.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	d.stopTick = stop

	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				progress, emit := d.position()
				if emit != nil {
					emit(Event{Kind: EventTick, Progress: progress})
				}
			}
		}
	}()
}

// stopTicker must be called with mu held
func (d *BeepDriver) stopTicker() {
	if d.stopTick != nil {
		close(d.stopTick)
		d.stopTick = nil
	}
}

func (d *BeepDriver) position() (float64, func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.streamer == nil || d.closed {
		return 0, nil
	}

	speaker.Lock()
	pos, total := d.streamer.Position(), d.streamer.Len()
	speaker.Unlock()
	if total <= 0 {
		return 0, d.emit
	}
	return float64(pos) / float64(total) * 100, d.emit
}
