package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dreamtales/internal/config"
	"dreamtales/internal/domain/story"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const defaultCompletionTimeout = 60 * time.Second

// CompletionGenerator asks a chat completion endpoint for the story. It
// makes exactly one attempt per call.
type CompletionGenerator struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

func NewCompletionGenerator(cfg config.Generator, apiKey string) *CompletionGenerator {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &CompletionGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		timeout:     timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *CompletionGenerator) Name() string { return string(StrategyCompletion) }

func (c *CompletionGenerator) Generate(ctx context.Context, params story.Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt(params),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: UserPrompt(params),
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyCompletionError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", story.ErrGenerationFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: completion returned empty text", story.ErrGenerationFailed)
	}

	logrus.WithFields(logrus.Fields{
		"model":    c.model,
		"chars":    len(text),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Generated story text")
	return text, nil
}

// SystemPrompt describes the storyteller for the given parameters
func SystemPrompt(params story.Params) string {
	return fmt.Sprintf(
		"You are a warm children's storyteller. Write a %s story for a %d year old child. "+
			"It should take about %s to read aloud. Write it in %s. "+
			"Use simple words, short paragraphs and a gentle, positive tone. "+
			"Return only the story text, without a title.",
		goalDescription(params.Goal), params.Age, strings.ToLower(string(params.Duration)), params.Language.Name())
}

// UserPrompt carries the topic
func UserPrompt(params story.Params) string {
	return fmt.Sprintf("Tell me a story about %s.", strings.TrimSpace(params.Topic))
}

func goalDescription(goal story.Goal) string {
	switch goal {
	case story.GoalBedtime:
		return "soothing bedtime"
	case story.GoalLearning:
		return "educational"
	case story.GoalSocial:
		return "social skills"
	case story.GoalCalming:
		return "calming, relaxing"
	default:
		return "fun, playful"
	}
}

func classifyCompletionError(ctx context.Context, err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: completion: %v", story.ErrUnauthorized, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: completion: %v", story.ErrQuotaExceeded, err)
	case status >= 500:
		return fmt.Errorf("%w: completion: %v", story.ErrProviderUnavailable, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: completion timed out: %v", story.ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: completion: %v", story.ErrGenerationFailed, err)
}
