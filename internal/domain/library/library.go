package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"dreamtales/internal/domain/story"
	"dreamtales/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrUserChanged is returned when a result arrives for a user that is no
// longer active. Callers drop such results.
var ErrUserChanged = errors.New("active user changed")

// DefaultPrefix is prepended to the user id to form the durable key
const DefaultPrefix = "stories_"

// Store keeps the active user's stories in memory, newest first, and mirrors
// every mutation into that user's durable slot.
type Store struct {
	kv     storage.KV
	prefix string

	mu      sync.RWMutex
	userID  string
	stories []story.Story
	loading bool
}

func NewStore(kv storage.KV, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{kv: kv, prefix: prefix, loading: true}
}

// Key returns the durable slot name of a user
func (s *Store) Key(userID string) string {
	return s.prefix + userID
}

// Bind reloads the collection whenever the subscribed identity changes
func (s *Store) Bind(subscribe func(func(userID string))) {
	subscribe(func(userID string) {
		s.Load(context.Background(), userID)
	})
}

// Load swaps the collection to userID. Read or decode failures leave the
// collection empty and are only logged.
func (s *Store) Load(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = true
	defer func() { s.loading = false }()

	s.userID = userID
	s.stories = nil
	if userID == "" {
		return
	}

	log := logrus.WithField("user_id", userID)
	data, found, err := s.kv.Get(ctx, s.Key(userID))
	if err != nil {
		log.WithError(err).Error("Failed to read saved stories")
		return
	}
	if !found {
		return
	}

	var saved []story.Story
	if err := json.Unmarshal(data, &saved); err != nil {
		log.WithError(err).Error("Failed to parse saved stories")
		return
	}

	owned := saved[:0]
	for _, st := range saved {
		if st.UserID == userID {
			owned = append(owned, st)
		}
	}
	if dropped := len(saved) - len(owned); dropped > 0 {
		log.WithField("dropped", dropped).Warn("Ignoring saved stories of another user")
	}

	s.stories = owned
	log.WithField("stories", len(owned)).Debug("Loaded stories")
}

// Append inserts a new story at the front and persists the collection
func (s *Store) Append(ctx context.Context, st story.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return story.ErrNotAuthenticated
	}
	if st.UserID != s.userID {
		return fmt.Errorf("%w: story %s belongs to %s", ErrUserChanged, st.ID, st.UserID)
	}
	if s.indexOf(st.ID) >= 0 {
		return fmt.Errorf("story %s already exists", st.ID)
	}

	previous := s.stories
	s.stories = append([]story.Story{st}, previous...)
	if err := s.persist(ctx); err != nil {
		s.stories = previous
		return err
	}
	return nil
}

// AttachAudio records narration for a story. Existing narration is only
// replaced when overwrite is set.
func (s *Store) AttachAudio(ctx context.Context, id string, audio story.Audio, overwrite bool) (story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return story.Story{}, fmt.Errorf("%w: %s", story.ErrStoryNotFound, id)
	}
	if !s.stories[i].Audio.IsNone() && !overwrite {
		return s.stories[i], fmt.Errorf("%w: %s", story.ErrAudioAlreadyAttached, id)
	}

	previous := s.stories
	updated := append([]story.Story(nil), previous...)
	updated[i].Audio = audio
	s.stories = updated
	if err := s.persist(ctx); err != nil {
		s.stories = previous
		return previous[i], err
	}
	return updated[i], nil
}

// GetByID reports found=false for unknown ids
func (s *Store) GetByID(id string) (story.Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.stories[i], true
	}
	return story.Story{}, false
}

// Stories returns a copy of the collection, newest first
func (s *Store) Stories() []story.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]story.Story(nil), s.stories...)
}

// Search matches term against topic and title, case-insensitively, and
// keeps only the given goal. An empty goal or "all" matches every goal.
func (s *Store) Search(term string, goal story.Goal) []story.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(strings.TrimSpace(term))
	var matches []story.Story
	for _, st := range s.stories {
		if goal != "" && goal != "all" && st.Goal != goal {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(st.Topic), term) &&
			!strings.Contains(strings.ToLower(st.Title), term) {
			continue
		}
		matches = append(matches, st)
	}
	return matches
}

func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// IsLoading reports whether a collection swap is still in progress
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// persist must be called with mu held. An empty collection is never written.
func (s *Store) persist(ctx context.Context) error {
	if s.userID == "" || len(s.stories) == 0 {
		return nil
	}

	data, err := json.Marshal(s.stories)
	if err != nil {
		return fmt.Errorf("failed to encode stories: %w", err)
	}
	if err := s.kv.Put(ctx, s.Key(s.userID), data); err != nil {
		return fmt.Errorf("failed to save stories: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": s.userID,
		"stories": len(s.stories),
	}).Debug("Saved stories")
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, st := range s.stories {
		if st.ID == id {
			return i
		}
	}
	return -1
}
