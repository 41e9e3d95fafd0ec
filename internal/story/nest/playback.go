package nest

import (
	"fmt"
	"strings"
	"sync"

	"dreamtales/internal/cli/scheme/colours"
	"dreamtales/internal/domain/story"
	"dreamtales/internal/story/player"
)

const progressBarWidth = 30

// playStory binds the story's audio and runs the interactive controls until
// the user stops or the context ends
func (sn *StoryNest) playStory(st story.Story) {
	unsubscribe := sn.Player.Subscribe(newProgressPrinter().render)
	defer unsubscribe()
	sn.Player.Bind(st.Audio)
	defer sn.Player.Bind(story.NoAudio())

	if snap := sn.Player.Snapshot(); snap.Err != nil {
		sn.notify(fmt.Errorf("%w: %v", story.ErrAudioUnavailable, snap.Err))
		return
	}
	if st.Audio.IsPlaceholder() {
		colours.Warning.Println("🔈 Playing demo audio (no speech provider configured)")
	}

	fmt.Println()
	colours.Success.Println("🎵 Press Enter or 'p' to play/pause, 's' to stop 🎵")
	fmt.Println("💡 Press Ctrl+C to stop anytime")

	for {
		select {
		case <-sn.ctx.Done():
			return
		default:
		}

		input, err := sn.reader.ReadString('\n')
		if err != nil {
			return
		}
		switch strings.TrimSpace(strings.ToLower(input)) {
		case "", "p", "pause", "play":
			if err := sn.Player.Toggle(); err != nil {
				sn.notify(err)
			}
		case "s", "stop", "q":
			colours.Warning.Println("⏹️  Stopped")
			return
		default:
			colours.Info.Println("ℹ️  Use 'p' for play/pause, 's' to stop")
		}
	}
}

// progressPrinter redraws a single status line, skipping ticks that do not
// move the bar
type progressPrinter struct {
	mu    sync.Mutex
	state player.State
	cells int
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{state: -1, cells: -1}
}

func (p *progressPrinter) render(snap player.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cells := int(snap.Progress / 100 * progressBarWidth)
	if snap.State == p.state && cells == p.cells {
		return
	}
	p.state, p.cells = snap.State, cells

	switch snap.State {
	case player.StateLoading:
		fmt.Print("\r⏳ Loading audio...                                   ")
	case player.StateEnded:
		fmt.Println()
		colours.Success.Println("✅ Story finished! 🌟 Sleep tight! 🌙")
	case player.StateIdle:
		if snap.Err != nil {
			fmt.Println()
			colours.Error.Println("❌ Audio unavailable")
		}
	default:
		icon := "⏸️"
		if snap.State == player.StatePlaying {
			icon = "▶️"
		}
		bar := strings.Repeat("█", cells) + strings.Repeat("░", progressBarWidth-cells)
		fmt.Print("\r" + icon + " ")
		colours.Progress.Printf("[%s] %3.0f%%", bar, snap.Progress)
	}
}
