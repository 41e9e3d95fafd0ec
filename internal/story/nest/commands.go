package nest

import (
	"fmt"
	"strings"

	"dreamtales/internal/cli/scheme/colours"
	"dreamtales/internal/domain/story"

	"github.com/spf13/cobra"
)

func (sn *StoryNest) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to DreamTales! 🌟")
	fmt.Println()
	if u := sn.Session.Current(); u != nil {
		colours.Success.Printf("👋 Signed in as %s\n", u.Email)
	} else {
		colours.Warning.Println("🔑 Not signed in. Start with: dreamtales login")
	}
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • dreamtales create    - Create a personalized story")
	fmt.Println("  • dreamtales list      - Browse your stories")
	fmt.Println("  • dreamtales read      - Read and listen to a story")
	fmt.Println("  • dreamtales narrate   - Generate narration for a story")
	fmt.Println("  • dreamtales export    - Save a story as a text file")
	fmt.Println("  • dreamtales settings  - Show providers and voices")
	fmt.Println()
	colours.Prompt.Println("✨ Ready for a magical story adventure? ✨")
}

func (sn *StoryNest) Login(cmd *cobra.Command, args []string) {
	sn.signIn(cmd, false)
}

func (sn *StoryNest) Signup(cmd *cobra.Command, args []string) {
	sn.signIn(cmd, true)
}

func (sn *StoryNest) signIn(cmd *cobra.Command, signup bool) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = sn.prompt("📧 Email: ")
	}
	if password == "" {
		password = sn.prompt("🔒 Password: ")
	}

	login := sn.Session.Login
	if signup {
		login = sn.Session.Signup
	}
	u, err := login(sn.ctx, email, password)
	if err != nil {
		sn.notify(err)
		return
	}

	colours.Success.Printf("✅ Welcome, %s!\n", u.Email)
	colours.Info.Printf("📚 You have %d stories\n", len(sn.Library.Stories()))
}

func (sn *StoryNest) Logout(cmd *cobra.Command, args []string) {
	if err := sn.Session.Logout(sn.ctx); err != nil {
		sn.notify(err)
		return
	}
	colours.Warning.Println("👋 Signed out. Sweet dreams! 🌙")
}

func (sn *StoryNest) WhoAmI(cmd *cobra.Command, args []string) {
	if sn.Session.IsLoading() || sn.Library.IsLoading() {
		colours.Info.Println("⏳ Still restoring your session...")
		return
	}
	u := sn.Session.Current()
	if u == nil {
		colours.Warning.Println("🔑 Not signed in")
		return
	}
	colours.Success.Printf("👤 %s\n", u.Email)
	colours.Info.Printf("   ID: %s | Stories: %d\n", u.ID, len(sn.Library.Stories()))
}

func (sn *StoryNest) CreateStory(cmd *cobra.Command, args []string) {
	params, err := paramsFromFlags(cmd)
	if err != nil {
		sn.notify(err)
		return
	}
	if params.Topic == "" {
		params.Topic = sn.prompt("💭 What should the story be about? ")
	}

	colours.Info.Printf("✨ Creating your story with the %s strategy...\n", sn.Generator.Strategy())
	st, err := sn.Create(sn.ctx, params)
	if err != nil {
		sn.notify(err)
		return
	}
	colours.Success.Println("🎉 Your story is ready!")
	sn.printStory(st)

	if narrate, _ := cmd.Flags().GetBool("narrate"); narrate {
		sn.narrateAndReport(st.ID, false)
	}
}

func (sn *StoryNest) ListStories(cmd *cobra.Command, args []string) {
	if !sn.Session.IsAuthenticated() {
		sn.notify(story.ErrNotAuthenticated)
		return
	}
	term, _ := cmd.Flags().GetString("search")
	goal, _ := cmd.Flags().GetString("goal")

	fmt.Println()
	colours.Title.Println("📚 Your Stories 📚")
	fmt.Println()

	stories := sn.Library.Search(term, story.Goal(strings.ToLower(goal)))
	for i, st := range stories {
		sn.printSummary(i+1, st)
	}

	if len(stories) == 0 {
		colours.Warning.Println("🔍 No stories found matching your criteria.")
	} else {
		colours.Success.Printf("✨ Found %d wonderful stories! ✨\n", len(stories))
	}
}

func (sn *StoryNest) ReadStory(cmd *cobra.Command, args []string) {
	if !sn.Session.IsAuthenticated() {
		sn.notify(story.ErrNotAuthenticated)
		return
	}
	st, ok := sn.resolveStory(args)
	if !ok {
		return
	}
	sn.printStory(st)

	if st.Audio.IsNone() {
		colours.Info.Println("🔇 This story has no narration yet. Create it with: dreamtales narrate " + st.ID)
		return
	}
	sn.playStory(st)
}

func (sn *StoryNest) NarrateStory(cmd *cobra.Command, args []string) {
	if !sn.Session.IsAuthenticated() {
		sn.notify(story.ErrNotAuthenticated)
		return
	}
	force, _ := cmd.Flags().GetBool("force")
	st, ok := sn.resolveStory(args)
	if !ok {
		return
	}
	sn.narrateAndReport(st.ID, force)
}

func (sn *StoryNest) ExportStory(cmd *cobra.Command, args []string) {
	if !sn.Session.IsAuthenticated() {
		sn.notify(story.ErrNotAuthenticated)
		return
	}
	out, _ := cmd.Flags().GetString("out")
	st, ok := sn.resolveStory(args)
	if !ok {
		return
	}
	path, err := sn.Export(st.ID, out)
	if err != nil {
		sn.notify(err)
		return
	}
	colours.Success.Printf("📄 Saved \"%s\" to %s\n", st.DisplayTitle(), path)
}

func (sn *StoryNest) narrateAndReport(id string, force bool) {
	colours.Info.Printf("🎙️ Narrating with %s...\n", sn.Narrator.Provider())
	st, err := sn.Narrate(sn.ctx, id, force)
	if err != nil {
		sn.notify(err)
		return
	}
	if st.Audio.IsPlaceholder() {
		colours.Warning.Println("🔈 No speech provider configured, saved demo audio instead")
		return
	}
	colours.Success.Printf("✅ Narration saved: %s\n", st.Audio.Locator())
}

func (sn *StoryNest) ConfigureSettings(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("⚙️ DreamTales Settings ⚙️")
	fmt.Println()

	colours.Prompt.Println("🧩 Providers:")
	fmt.Printf("  • Environment: %s\n", sn.Config.Env)
	fmt.Printf("  • Story generator: %s\n", sn.Generator.Strategy())
	fmt.Printf("  • Narration: %s\n", sn.Narrator.Provider())
	fmt.Printf("  • Storage: %s\n", sn.Config.Storage.Backend)
	fmt.Println()

	colours.Prompt.Println("🎤 Voice styles:")
	for _, v := range story.VoiceStyles {
		marker := ""
		if v == story.DefaultVoiceStyle {
			marker = " (default)"
		}
		fmt.Printf("  • %s%s\n", v, marker)
	}
	fmt.Println()

	colours.Prompt.Println("🎯 Goals:")
	for _, g := range story.Goals {
		fmt.Printf("  • %s\n", g)
	}
	fmt.Println()

	colours.Prompt.Println("⏱️ Durations:")
	for _, d := range story.Durations {
		fmt.Printf("  • %s\n", d)
	}
	fmt.Println()

	if !sn.Narrator.Configured() {
		colours.Info.Println("💡 Set ELEVENLABS_API_KEY or GOOGLE_APPLICATION_CREDENTIALS to enable real narration")
	}
}

func paramsFromFlags(cmd *cobra.Command) (story.Params, error) {
	flags := cmd.Flags()
	topic, _ := flags.GetString("topic")
	goal, _ := flags.GetString("goal")
	age, _ := flags.GetInt("age")
	duration, _ := flags.GetString("duration")
	voice, _ := flags.GetString("voice")
	language, _ := flags.GetString("language")
	title, _ := flags.GetString("title")

	params := story.Params{
		Topic:      strings.TrimSpace(topic),
		Goal:       story.Goal(strings.ToLower(goal)),
		Age:        age,
		VoiceStyle: matchVoice(voice),
		Language:   story.Language(strings.ToLower(language)),
		Title:      title,
	}

	d, ok := matchDuration(duration)
	if !ok {
		return params, fmt.Errorf("%w: unknown duration %q", story.ErrInvalidParams, duration)
	}
	params.Duration = d
	return params, nil
}

// matchDuration accepts a band name or its leading range, e.g. "1-2"
func matchDuration(s string) (story.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range story.Durations {
		name := strings.ToLower(string(d))
		if s == name || strings.HasPrefix(name, s+" ") {
			return d, true
		}
	}
	return "", false
}

// matchVoice normalizes case; unknown styles are kept and fall back to the
// default voice at synthesis time
func matchVoice(s string) story.VoiceStyle {
	s = strings.TrimSpace(s)
	for _, v := range story.VoiceStyles {
		if strings.EqualFold(s, string(v)) {
			return v
		}
	}
	return story.VoiceStyle(s)
}
