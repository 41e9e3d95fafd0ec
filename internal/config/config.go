package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Env decides how missing provider credentials are treated
type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

type Storage struct {
	Backend       string
	Dir           string
	Prefix        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type Generator struct {
	Strategy    string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

type TTS struct {
	Provider        string
	BaseURL         string
	ModelID         string
	MaxChars        int
	Timeout         time.Duration
	AudioDir        string
	Stability       float64
	SimilarityBoost float64
}

type Player struct {
	PlaceholderStep     float64
	PlaceholderInterval time.Duration
}

// Config is the typed view of the viper settings, resolved once at startup
type Config struct {
	Env         Env
	LogLevel    string
	MetricsAddr string
	Storage     Storage
	Generator   Generator
	TTS         TTS
	Player      Player
}

// Credentials holds provider secrets. Only this package knows the
// historical environment variable names they may come from.
type Credentials struct {
	CompletionKey     string
	SpeechKey         string
	GoogleCredentials string
}

func (c Credentials) HasCompletion() bool { return c.CompletionKey != "" }

func (c Credentials) HasSpeech() bool { return c.SpeechKey != "" }

func (c Credentials) HasGoogle() bool { return c.GoogleCredentials != "" }

var credentialEnv = map[string][]string{
	"completion.api_key":     {"DREAMTALES_COMPLETION_API_KEY", "OPENAI_API_KEY", "VITE_OPENAI_API_KEY"},
	"tts.api_key":            {"DREAMTALES_TTS_API_KEY", "ELEVENLABS_API_KEY", "VITE_ELEVENLABS_API_KEY"},
	"tts.google_credentials": {"GOOGLE_APPLICATION_CREDENTIALS"},
}

// SetDefaults registers defaults on the global viper instance
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	dataDir := dataDirectory()

	v.SetDefault("app.env", string(EnvDevelopment))
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", filepath.Join(dataDir, "data"))
	v.SetDefault("storage.prefix", "stories_")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)

	v.SetDefault("generator.strategy", "auto")
	v.SetDefault("completion.model", "gpt-4o-mini")
	v.SetDefault("completion.base_url", "")
	v.SetDefault("completion.timeout", 60*time.Second)
	v.SetDefault("completion.max_tokens", 1500)
	v.SetDefault("completion.temperature", 0.8)

	v.SetDefault("tts.provider", "auto")
	v.SetDefault("tts.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("tts.model_id", "eleven_monolingual_v1")
	v.SetDefault("tts.max_chars", 2500)
	v.SetDefault("tts.timeout", 60*time.Second)
	v.SetDefault("tts.audio_dir", filepath.Join(dataDir, "audio"))
	v.SetDefault("tts.stability", 0.75)
	v.SetDefault("tts.similarity_boost", 0.75)

	v.SetDefault("player.placeholder_step", 1.0)
	v.SetDefault("player.placeholder_interval", 300*time.Millisecond)
}

// Load reads the global viper instance
func Load() (Config, Credentials, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom resolves configuration and credentials from v. A .env file in the
// working directory is applied first, without overriding the environment.
func LoadFrom(v *viper.Viper) (Config, Credentials, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to read .env file")
	}

	setDefaults(v)
	v.SetEnvPrefix("DREAMTALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range credentialEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return Config{}, Credentials{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := Config{
		Env:         Env(strings.ToLower(v.GetString("app.env"))),
		LogLevel:    v.GetString("log.level"),
		MetricsAddr: v.GetString("metrics.addr"),
		Storage: Storage{
			Backend:       strings.ToLower(v.GetString("storage.backend")),
			Dir:           v.GetString("storage.dir"),
			Prefix:        v.GetString("storage.prefix"),
			RedisAddr:     v.GetString("storage.redis_addr"),
			RedisPassword: v.GetString("storage.redis_password"),
			RedisDB:       v.GetInt("storage.redis_db"),
		},
		Generator: Generator{
			Strategy:    strings.ToLower(v.GetString("generator.strategy")),
			Model:       v.GetString("completion.model"),
			BaseURL:     v.GetString("completion.base_url"),
			Timeout:     v.GetDuration("completion.timeout"),
			MaxTokens:   v.GetInt("completion.max_tokens"),
			Temperature: float32(v.GetFloat64("completion.temperature")),
		},
		TTS: TTS{
			Provider:        strings.ToLower(v.GetString("tts.provider")),
			BaseURL:         v.GetString("tts.base_url"),
			ModelID:         v.GetString("tts.model_id"),
			MaxChars:        v.GetInt("tts.max_chars"),
			Timeout:         v.GetDuration("tts.timeout"),
			AudioDir:        v.GetString("tts.audio_dir"),
			Stability:       v.GetFloat64("tts.stability"),
			SimilarityBoost: v.GetFloat64("tts.similarity_boost"),
		},
		Player: Player{
			PlaceholderStep:     v.GetFloat64("player.placeholder_step"),
			PlaceholderInterval: v.GetDuration("player.placeholder_interval"),
		},
	}

	creds := Credentials{
		CompletionKey:     strings.TrimSpace(v.GetString("completion.api_key")),
		SpeechKey:         strings.TrimSpace(v.GetString("tts.api_key")),
		GoogleCredentials: strings.TrimSpace(v.GetString("tts.google_credentials")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, Credentials{}, err
	}
	return cfg, creds, nil
}

// Validate rejects settings no component can act on
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("config: app.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("config: unsupported storage backend %q", c.Storage.Backend)
	}
	switch c.Generator.Strategy {
	case "auto", "template", "completion":
	default:
		return fmt.Errorf("config: unsupported generator strategy %q", c.Generator.Strategy)
	}
	switch c.TTS.Provider {
	case "auto", "elevenlabs", "google", "placeholder":
	default:
		return fmt.Errorf("config: unsupported tts provider %q", c.TTS.Provider)
	}
	if c.TTS.MaxChars <= 0 {
		return fmt.Errorf("config: tts.max_chars must be positive, got %d", c.TTS.MaxChars)
	}
	if c.Player.PlaceholderStep <= 0 || c.Player.PlaceholderInterval <= 0 {
		return fmt.Errorf("config: placeholder playback step and interval must be positive")
	}
	return nil
}

// dataDirectory returns where stories and audio live by default
func dataDirectory() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".dreamtales")
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".dreamtales")
	}

	return ".dreamtales"
}
