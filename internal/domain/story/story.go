package story

import (
	"fmt"
	"strings"
	"time"
)

// Goal is the purpose a parent picks for a story
type Goal string

const (
	GoalBedtime  Goal = "bedtime"
	GoalLearning Goal = "learning"
	GoalSocial   Goal = "social"
	GoalCalming  Goal = "calming"
	GoalFun      Goal = "fun"
)

// Goals lists every supported goal in menu order
var Goals = []Goal{GoalBedtime, GoalLearning, GoalSocial, GoalCalming, GoalFun}

func (g Goal) Valid() bool {
	for _, known := range Goals {
		if g == known {
			return true
		}
	}
	return false
}

// Language of the generated text
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHebrew  Language = "he"
	LanguageSpanish Language = "es"
)

var Languages = []Language{LanguageEnglish, LanguageHebrew, LanguageSpanish}

func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// Name returns the English name of the language, used in prompts
func (l Language) Name() string {
	switch l {
	case LanguageHebrew:
		return "Hebrew"
	case LanguageSpanish:
		return "Spanish"
	default:
		return "English"
	}
}

// Duration is one of the fixed story length bands
type Duration string

const (
	DurationUnderOne     Duration = "Under 1 minute"
	DurationOneTwo       Duration = "1-2 minutes"
	DurationThreeFive    Duration = "3-5 minutes"
	DurationSixTen       Duration = "6-10 minutes"
	DurationElevenTwenty Duration = "11-20 minutes"
)

var Durations = []Duration{DurationUnderOne, DurationOneTwo, DurationThreeFive, DurationSixTen, DurationElevenTwenty}

func (d Duration) Valid() bool {
	for _, known := range Durations {
		if d == known {
			return true
		}
	}
	return false
}

// VoiceStyle is a named narration persona
type VoiceStyle string

const (
	VoiceCalmMom              VoiceStyle = "Calm Mom"
	VoiceExcitedDad           VoiceStyle = "Excited Dad"
	VoiceWarmTeacher          VoiceStyle = "Warm Teacher"
	VoiceGrandma              VoiceStyle = "Grandma"
	VoiceProfessionalNarrator VoiceStyle = "Professional Narrator"

	// DefaultVoiceStyle is used whenever a style is unknown to a provider
	DefaultVoiceStyle = VoiceProfessionalNarrator
)

var VoiceStyles = []VoiceStyle{VoiceCalmMom, VoiceExcitedDad, VoiceWarmTeacher, VoiceGrandma, VoiceProfessionalNarrator}

const (
	MinAge = 2
	MaxAge = 10
)

// Params are the user-submitted inputs of a story generation
type Params struct {
	Topic      string     `json:"topic"`
	Goal       Goal       `json:"goal"`
	Age        int        `json:"age"`
	Duration   Duration   `json:"duration"`
	VoiceStyle VoiceStyle `json:"voice_style"`
	Language   Language   `json:"language"`
	Title      string     `json:"title,omitempty"`
}

// Validate checks the parameter set. Voice styles are not checked here,
// unknown styles resolve to the default voice at synthesis time.
func (p Params) Validate() error {
	switch {
	case strings.TrimSpace(p.Topic) == "":
		return fmt.Errorf("%w: topic is required", ErrInvalidParams)
	case !p.Goal.Valid():
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidParams, p.Goal)
	case p.Age < MinAge || p.Age > MaxAge:
		return fmt.Errorf("%w: age must be between %d and %d, got %d", ErrInvalidParams, MinAge, MaxAge, p.Age)
	case !p.Duration.Valid():
		return fmt.Errorf("%w: unknown duration %q", ErrInvalidParams, p.Duration)
	case !p.Language.Valid():
		return fmt.Errorf("%w: unknown language %q", ErrInvalidParams, p.Language)
	}
	return nil
}

// Story is a generated narrative owned by exactly one user
type Story struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Topic      string     `json:"topic"`
	Goal       Goal       `json:"goal"`
	Age        int        `json:"age"`
	Duration   Duration   `json:"duration"`
	VoiceStyle VoiceStyle `json:"voice_style"`
	Language   Language   `json:"language"`
	Text       string     `json:"story_text"`
	Audio      Audio      `json:"audio"`
	CreatedAt  time.Time  `json:"created_at"`
	Title      string     `json:"title,omitempty"`
}

// DefaultTitle is the title shown for a story without an explicit one
func DefaultTitle(topic string) string {
	return fmt.Sprintf("Story about %s", topic)
}

// DisplayTitle returns the explicit title or the derived default
func (s Story) DisplayTitle() string {
	if strings.TrimSpace(s.Title) != "" {
		return s.Title
	}
	return DefaultTitle(s.Topic)
}

// Params echoes the generation inputs of the story
func (s Story) Params() Params {
	return Params{
		Topic:      s.Topic,
		Goal:       s.Goal,
		Age:        s.Age,
		Duration:   s.Duration,
		VoiceStyle: s.VoiceStyle,
		Language:   s.Language,
		Title:      s.Title,
	}
}
