package generator

import (
	"context"
	"fmt"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"

	"github.com/sirupsen/logrus"
)

// StoryGenerator turns validated parameters into story text
type StoryGenerator interface {
	Name() string
	Generate(ctx context.Context, params story.Params) (string, error)
}

type Strategy string

const (
	StrategyAuto       Strategy = "auto"
	StrategyTemplate   Strategy = "template"
	StrategyCompletion Strategy = "completion"
)

// New picks the generation strategy. Auto uses the completion API when a
// credential is configured and the template otherwise.
func New(cfg config.Generator, creds config.Credentials) (StoryGenerator, error) {
	switch Strategy(cfg.Strategy) {
	case StrategyTemplate:
		return NewTemplateGenerator(nil), nil

	case StrategyCompletion:
		if !creds.HasCompletion() {
			return nil, fmt.Errorf("%w: completion strategy needs an API key", story.ErrNotConfigured)
		}
		return NewCompletionGenerator(cfg, creds.CompletionKey), nil

	case StrategyAuto, "":
		if creds.HasCompletion() {
			return NewCompletionGenerator(cfg, creds.CompletionKey), nil
		}
		logrus.Info("No completion API key configured, using story templates")
		return NewTemplateGenerator(nil), nil

	default:
		return nil, fmt.Errorf("unsupported generator strategy: %s", cfg.Strategy)
	}
}
