package player

import (
	"math"
	"sync"
	"time"
)

// SimulatedDriver stands in for real audio. Progress advances by step
// percent every interval until it reaches 100.
type SimulatedDriver struct {
	step     float64
	interval time.Duration

	mu       sync.Mutex
	emit     func(Event)
	progress float64
	stop     chan struct{}
}

func NewSimulatedDriver(step float64, interval time.Duration) *SimulatedDriver {
	if step <= 0 {
		step = defaultPlaceholderStep
	}
	if interval <= 0 {
		interval = defaultPlaceholderInterval
	}
	return &SimulatedDriver{step: step, interval: interval}
}

// Load is immediately playable
func (d *SimulatedDriver) Load(emit func(Event)) error {
	d.mu.Lock()
	d.emit = emit
	d.mu.Unlock()

	emit(Event{Kind: EventPlayable})
	return nil
}

func (d *SimulatedDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		return nil
	}
	if d.progress >= 100 {
		d.progress = 0
	}
	stop := make(chan struct{})
	d.stop = stop
	go d.run(stop)
	return nil
}

func (d *SimulatedDriver) run(stop chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		d.mu.Lock()
		if d.stop != stop {
			d.mu.Unlock()
			return
		}
		d.progress = math.Min(100, d.progress+d.step)
		progress := d.progress
		done := progress >= 100
		if done {
			d.stop = nil
		}
		emit := d.emit
		d.mu.Unlock()

		if emit == nil {
			continue
		}
		emit(Event{Kind: EventTick, Progress: progress})
		if done {
			emit(Event{Kind: EventEnded})
			return
		}
	}
}

func (d *SimulatedDriver) Pause() error {
	d.mu.Lock()
	d.halt()
	d.mu.Unlock()
	return nil
}

func (d *SimulatedDriver) Rewind() error {
	d.mu.Lock()
	d.halt()
	d.progress = 0
	d.mu.Unlock()
	return nil
}

func (d *SimulatedDriver) Close() error {
	d.mu.Lock()
	d.halt()
	d.emit = nil
	d.mu.Unlock()
	return nil
}

// Progress returns the current percentage
func (d *SimulatedDriver) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

// halt must be called with mu held
func (d *SimulatedDriver) halt() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}
