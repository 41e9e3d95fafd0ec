package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dreamtales/internal/cli/scheme/colours"
	"dreamtales/internal/config"
	"dreamtales/internal/story/nest"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	app           *nest.StoryNest
	metricsServer *http.Server
)

func main() {
	config.SetDefaults()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdown()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "dreamtales",
		Short: "🌙 Personalized bedtime stories for your kids",
		Long: `
┌─────────────────────────────────────┐
│  ✨ Welcome to DreamTales! 🌙       │
│  Personalized stories for kids      │
│  Written and read aloud 👶📖        │
└─────────────────────────────────────┘

DreamTales creates stories around your child's favourite topics,
narrates them in a voice you choose and keeps them for the next bedtime.
		`,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "🔑 Sign in",
		Long:  "Sign in with your email. Your stories are kept per account",
		Run:   func(cmd *cobra.Command, args []string) { app.Login(cmd, args) },
	}

	signupCmd := &cobra.Command{
		Use:   "signup",
		Short: "📝 Create an account",
		Run:   func(cmd *cobra.Command, args []string) { app.Signup(cmd, args) },
	}

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "👋 Sign out",
		Run:   func(cmd *cobra.Command, args []string) { app.Logout(cmd, args) },
	}

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "👤 Show the signed-in user",
		Run:   func(cmd *cobra.Command, args []string) { app.WhoAmI(cmd, args) },
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "✨ Create a new story",
		Long:  "Generate a personalized story from a topic, goal, age and length",
		Run:   func(cmd *cobra.Command, args []string) { app.CreateStory(cmd, args) },
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List your stories",
		Long:  "Display your saved stories, newest first",
		Run:   func(cmd *cobra.Command, args []string) { app.ListStories(cmd, args) },
	}

	readCmd := &cobra.Command{
		Use:   "read [story-id]",
		Short: "📖 Read and listen to a story",
		Long:  "Show a story by its ID or select from a list, and play its narration",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.ReadStory(cmd, args) },
	}

	narrateCmd := &cobra.Command{
		Use:   "narrate [story-id]",
		Short: "🎙️ Generate narration for a story",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.NarrateStory(cmd, args) },
	}

	exportCmd := &cobra.Command{
		Use:   "export [story-id]",
		Short: "📄 Save a story as a text file",
		Args:  cobra.MaximumNArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { app.ExportStory(cmd, args) },
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show providers and voices",
		Run:   func(cmd *cobra.Command, args []string) { app.ConfigureSettings(cmd, args) },
	}

	// Add flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("metrics.addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	for _, cmd := range []*cobra.Command{loginCmd, signupCmd} {
		cmd.Flags().StringP("email", "e", "", "Email address")
		cmd.Flags().StringP("password", "p", "", "Password")
	}

	createCmd.Flags().StringP("topic", "t", "", "What the story is about")
	createCmd.Flags().StringP("goal", "g", "bedtime", "Story goal: bedtime, learning, social, calming or fun")
	createCmd.Flags().IntP("age", "a", 5, "Child's age (2-10)")
	createCmd.Flags().StringP("duration", "d", "3-5 minutes", "Story length, e.g. \"1-2 minutes\" or \"1-2\"")
	createCmd.Flags().StringP("voice", "v", "", "Narration voice style. See settings for options")
	createCmd.Flags().StringP("language", "l", "", "Story language: en, he or es")
	createCmd.Flags().String("title", "", "Optional story title")
	createCmd.Flags().BoolP("narrate", "n", false, "Narrate the story right away")

	listCmd.Flags().StringP("search", "s", "", "Search topics and titles")
	listCmd.Flags().StringP("goal", "g", "", "Filter by goal")

	narrateCmd.Flags().BoolP("force", "f", false, "Regenerate and replace existing narration")

	exportCmd.Flags().StringP("out", "o", "", "Output file (default: <title>.txt)")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd, createCmd, listCmd, readCmd, narrateCmd, exportCmd, settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, creds, err := config.Load()
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	app, err = nest.NewStoryNest(context.Background(), cfg, creds)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("Metrics server stopped")
			}
		}()
		logrus.WithField("addr", cfg.MetricsAddr).Info("Serving metrics")
	}
	return nil
}

func shutdown() {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		metricsServer.Shutdown(ctx)
		cancel()
	}
	if app != nil {
		app.Close()
	}
}

// Configuration management with Viper
func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	viper.SetConfigName("dreamtales")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.dreamtales")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("Failed to read config file")
		}
	}
}
