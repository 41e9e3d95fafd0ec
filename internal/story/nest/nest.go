package nest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"dreamtales/internal/cli/scheme/colours"
	"dreamtales/internal/config"
	"dreamtales/internal/domain/library"
	"dreamtales/internal/domain/library/generator"
	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"
	"dreamtales/internal/session"
	"dreamtales/internal/storage"
	"dreamtales/internal/story/player"
	"dreamtales/internal/story/tts"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// StoryNest wires the application together. It is built once per process
// and released with Close.
type StoryNest struct {
	Config config.Config

	kv        storage.KV
	Session   *session.Provider
	Library   *library.Store
	Generator *generator.Service
	Narrator  *tts.Narrator
	Player    *player.Controller
	Metrics   *observability.Metrics

	reader *bufio.Reader
	ctx    context.Context
	Cancel context.CancelFunc
}

func NewStoryNest(ctx context.Context, cfg config.Config, creds config.Credentials) (*StoryNest, error) {
	ctx, cancel := context.WithCancel(ctx)

	kv, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		cancel()
		return nil, err
	}

	metrics := observability.NewMetrics("dreamtales", prometheus.NewRegistry())

	sessions := session.NewProvider(kv)
	store := library.NewStore(kv, cfg.Storage.Prefix)
	store.Bind(sessions.Subscribe)
	if err := sessions.Restore(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to restore session")
	}

	gen, err := generator.New(cfg.Generator, creds)
	if err != nil {
		cancel()
		return nil, err
	}

	synth, err := tts.NewSynthesizer(ctx, cfg.TTS, creds)
	if err != nil {
		cancel()
		return nil, err
	}
	narrator, err := tts.NewNarrator(synth, cfg.TTS, cfg.Env, metrics)
	if err != nil {
		cancel()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"storage":   cfg.Storage.Backend,
		"generator": gen.Name(),
		"tts":       narrator.Provider(),
	}).Debug("StoryNest ready")

	return &StoryNest{
		Config:    cfg,
		kv:        kv,
		Session:   sessions,
		Library:   store,
		Generator: generator.NewService(gen, store, sessions, metrics),
		Narrator:  narrator,
		Player:    player.NewController(player.NewDriverFactory(cfg.Player), metrics),
		Metrics:   metrics,
		reader:    bufio.NewReader(os.Stdin),
		ctx:       ctx,
		Cancel:    cancel,
	}, nil
}

// Close stops playback and releases the speech client and storage backend
func (sn *StoryNest) Close() {
	sn.Cancel()
	sn.Player.Close()
	if err := sn.Narrator.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close speech client")
	}
	if closer, ok := sn.kv.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close storage")
		}
	}
}

// Create generates a story for the signed-in user
func (sn *StoryNest) Create(ctx context.Context, params story.Params) (story.Story, error) {
	if params.Language == "" {
		params.Language = story.LanguageEnglish
		if u := sn.Session.Current(); u != nil && u.Language != "" {
			params.Language = u.Language
		}
	}
	return sn.Generator.Generate(ctx, params)
}

// Narrate synthesizes audio for a stored story and attaches it. The result
// is only applied if the story is still in the active collection.
func (sn *StoryNest) Narrate(ctx context.Context, id string, force bool) (story.Story, error) {
	if !sn.Session.IsAuthenticated() {
		return story.Story{}, story.ErrNotAuthenticated
	}
	st, found := sn.Library.GetByID(id)
	if !found {
		return story.Story{}, fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
	}
	if !st.Audio.IsNone() && !force {
		return st, fmt.Errorf("%w: %s", story.ErrAudioAlreadyAttached, id)
	}

	narrate := sn.Narrator.Narrate
	if force {
		narrate = sn.Narrator.Regenerate
	}
	audio, err := narrate(ctx, st.Text, st.VoiceStyle, st.Language)
	if err != nil {
		return st, err
	}
	return sn.Library.AttachAudio(ctx, id, audio, force)
}

// Export writes a story's title and text to a plain text file. An empty out
// names the file after the title in the working directory.
func (sn *StoryNest) Export(id, out string) (string, error) {
	if !sn.Session.IsAuthenticated() {
		return "", story.ErrNotAuthenticated
	}
	st, found := sn.Library.GetByID(id)
	if !found {
		return "", fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
	}

	if out == "" {
		out = exportFileName(st)
	}
	data := st.DisplayTitle() + "\n\n" + strings.TrimSpace(st.Text) + "\n"
	if err := storage.WriteAtomic(out, []byte(data)); err != nil {
		return "", fmt.Errorf("failed to export story %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{
		"story_id": id,
		"file":     out,
	}).Info("Exported story")
	return out, nil
}

// exportFileName turns the title into a file name, "story.txt" when nothing
// usable is left
func exportFileName(st story.Story) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return ' '
		}
		return r
	}, st.DisplayTitle())
	name = strings.Trim(strings.Join(strings.Fields(name), " "), ". ")
	if name == "" {
		name = "story"
	}
	return name + ".txt"
}

func (sn *StoryNest) notify(err error) {
	n := NoticeFor(err)
	colours.Error.Printf("❌ %s\n", n.Title)
	colours.Muted.Printf("   %s\n", n.Description)
}

// prompt reads one trimmed line from stdin
func (sn *StoryNest) prompt(label string) string {
	colours.Prompt.Print(label)
	input, _ := sn.reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// resolveStory picks a story by id, falls back to the latest generated one,
// and finally asks the user to choose
func (sn *StoryNest) resolveStory(args []string) (story.Story, bool) {
	if len(args) > 0 {
		st, found := sn.Library.GetByID(args[0])
		if !found {
			sn.notify(fmt.Errorf("%w: %s", story.ErrStoryNotFound, args[0]))
		}
		return st, found
	}
	if st, ok := sn.Generator.Current(); ok {
		if fresh, found := sn.Library.GetByID(st.ID); found {
			return fresh, true
		}
	}
	return sn.chooseStory()
}

func (sn *StoryNest) chooseStory() (story.Story, bool) {
	stories := sn.Library.Stories()
	if len(stories) == 0 {
		colours.Warning.Println("📭 No stories yet! Create one with: dreamtales create")
		return story.Story{}, false
	}

	fmt.Println()
	colours.Title.Println("📚 Choose Your Story Adventure! 📚")
	fmt.Println()
	for i, st := range stories {
		fmt.Printf("%d. ", i+1)
		colours.Title.Printf("%s", st.DisplayTitle())
		fmt.Printf(" (%s, %s)\n", st.Goal, st.Duration)
	}
	fmt.Println()

	input := sn.prompt("🌟 Enter the number of your chosen story (or 'q' to quit): ")
	if input == "q" || input == "quit" {
		colours.Warning.Println("👋 Maybe next time! Sweet dreams! 🌙")
		return story.Story{}, false
	}

	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(stories) {
		colours.Error.Println("❌ Invalid selection! Please try again.")
		return story.Story{}, false
	}
	return stories[choice-1], true
}

func (sn *StoryNest) printStory(st story.Story) {
	fmt.Println()
	colours.Title.Printf("📖 %s\n", st.DisplayTitle())
	fmt.Printf("🎯 Goal: %s | 👶 Age: %d | ⏱️ Duration: %s | 🎤 Voice: %s | 🌍 %s\n",
		st.Goal, st.Age, st.Duration, st.VoiceStyle, st.Language.Name())
	colours.Info.Printf("🆔 %s | 🕐 %s\n", st.ID, st.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println()
	fmt.Println(st.Text)
	fmt.Println()
}

func (sn *StoryNest) printSummary(i int, st story.Story) {
	fmt.Printf("  %d. ", i)
	colours.Title.Printf("%s", st.DisplayTitle())
	fmt.Printf("\n     🎯 Goal: %s | 👶 Age: %d | ⏱️ Duration: %s | %s\n",
		st.Goal, st.Age, st.Duration, audioLabel(st.Audio))
	colours.Info.Printf("     ID: %s\n", st.ID)
	fmt.Println()
}

func audioLabel(a story.Audio) string {
	switch a.Kind() {
	case story.AudioPlaceholder:
		return "🔈 demo audio"
	case story.AudioResource:
		return "🔊 narrated"
	}
	return "🔇 no audio"
}
