package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dreamtales/internal/domain/library"
	"dreamtales/internal/domain/story"
	"dreamtales/internal/observability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Identity supplies the active user id, "" when signed out
type Identity interface {
	UserID() string
}

// Service creates stories for the active user and records them in the store
type Service struct {
	gen      StoryGenerator
	store    *library.Store
	identity Identity
	metrics  *observability.Metrics

	now   func() time.Time
	newID func() string

	generating atomic.Bool

	mu      sync.RWMutex
	current *story.Story
}

func NewService(gen StoryGenerator, store *library.Store, identity Identity, metrics *observability.Metrics) *Service {
	return &Service{
		gen:      gen,
		store:    store,
		identity: identity,
		metrics:  metrics,
		now:      time.Now,
		newID:    func() string { return "story_" + uuid.NewString() },
	}
}

// Generate produces a new story. It fails before any provider call when
// nobody is signed in, and rejects a second call while one is running.
func (s *Service) Generate(ctx context.Context, params story.Params) (story.Story, error) {
	st, err := s.generate(ctx, params)
	if err != nil {
		s.metrics.GenerationFailed(err)
		return story.Story{}, err
	}
	s.metrics.StoryGenerated(s.gen.Name())
	return st, nil
}

func (s *Service) generate(ctx context.Context, params story.Params) (story.Story, error) {
	userID := s.identity.UserID()
	if userID == "" {
		return story.Story{}, story.ErrNotAuthenticated
	}
	if err := params.Validate(); err != nil {
		return story.Story{}, err
	}
	if !s.generating.CompareAndSwap(false, true) {
		return story.Story{}, story.ErrGenerationInProgress
	}
	defer s.generating.Store(false)

	log := logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"strategy": s.gen.Name(),
		"goal":     params.Goal,
	})
	log.Info("Generating story")

	text, err := s.gen.Generate(ctx, params)
	if err != nil {
		log.WithError(err).Warn("Story generation failed")
		return story.Story{}, err
	}
	if strings.TrimSpace(text) == "" {
		return story.Story{}, fmt.Errorf("%w: empty story text", story.ErrGenerationFailed)
	}

	voice := params.VoiceStyle
	if voice == "" {
		voice = story.DefaultVoiceStyle
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = story.DefaultTitle(strings.TrimSpace(params.Topic))
	}

	st := story.Story{
		ID:         s.newID(),
		UserID:     userID,
		Topic:      strings.TrimSpace(params.Topic),
		Goal:       params.Goal,
		Age:        params.Age,
		Duration:   params.Duration,
		VoiceStyle: voice,
		Language:   params.Language,
		Text:       text,
		Audio:      story.NoAudio(),
		CreatedAt:  s.now(),
		Title:      title,
	}

	if err := s.store.Append(ctx, st); err != nil {
		if errors.Is(err, library.ErrUserChanged) {
			log.Info("User changed while generating, dropping story")
		}
		return story.Story{}, err
	}

	s.mu.Lock()
	s.current = &st
	s.mu.Unlock()

	log.WithField("story_id", st.ID).Info("Story created")
	return st, nil
}

// Current returns the most recently generated story
func (s *Service) Current() (story.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return story.Story{}, false
	}
	return *s.current, true
}

func (s *Service) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Service) IsGenerating() bool {
	return s.generating.Load()
}

// Strategy names the generator in use
func (s *Service) Strategy() string {
	return s.gen.Name()
}
