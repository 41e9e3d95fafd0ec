package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"dreamtales/internal/domain/story"
	"dreamtales/internal/domain/user"
	"dreamtales/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserKey is the durable slot holding the signed-in user
const UserKey = "user"

// Listener is told about every change of the active user id ("" when signed out)
type Listener = func(userID string)

// Provider is a mocked identity provider. Any email signs in; the same
// email always maps to the same user id.
type Provider struct {
	kv  storage.KV
	now func() time.Time

	mu        sync.RWMutex
	current   *user.User
	loading   bool
	listeners []Listener
}

func NewProvider(kv storage.KV) *Provider {
	return &Provider{kv: kv, now: time.Now, loading: true}
}

// Subscribe registers fn for user changes
func (p *Provider) Subscribe(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Restore loads the persisted user. Malformed data is dropped and the
// session starts signed out.
func (p *Provider) Restore(ctx context.Context) error {
	defer p.finishLoading()

	data, found, err := p.kv.Get(ctx, UserKey)
	if err != nil {
		p.set(nil)
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !found {
		p.set(nil)
		return nil
	}

	var saved user.User
	if err := json.Unmarshal(data, &saved); err != nil || saved.ID == "" {
		logrus.WithError(err).Warn("Failed to parse saved user, signing out")
		if delErr := p.kv.Delete(ctx, UserKey); delErr != nil {
			logrus.WithError(delErr).Warn("Failed to remove malformed session")
		}
		p.set(nil)
		return nil
	}

	p.set(&saved)
	return nil
}

// Login signs in with any email. The password is not checked.
func (p *Provider) Login(ctx context.Context, email, password string) (*user.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address %q", email)
	}

	u := &user.User{
		ID:        UserIDFor(email),
		Email:     email,
		Language:  story.LanguageEnglish,
		CreatedAt: p.now(),
	}

	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	if err := p.kv.Put(ctx, UserKey, data); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	logrus.WithField("user_id", u.ID).Info("User signed in")
	p.set(u)
	return u, nil
}

// Signup behaves like Login; accounts are created on first sign-in
func (p *Provider) Signup(ctx context.Context, email, password string) (*user.User, error) {
	return p.Login(ctx, email, password)
}

func (p *Provider) Logout(ctx context.Context) error {
	if err := p.kv.Delete(ctx, UserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	logrus.Info("User signed out")
	p.set(nil)
	return nil
}

// Current returns a copy of the signed-in user, or nil
func (p *Provider) Current() *user.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	u := *p.current
	return &u
}

func (p *Provider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return ""
	}
	return p.current.ID
}

func (p *Provider) IsAuthenticated() bool {
	return p.UserID() != ""
}

// IsLoading is true until the first Restore finishes
func (p *Provider) IsLoading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) finishLoading() {
	p.mu.Lock()
	p.loading = false
	p.mu.Unlock()
}

func (p *Provider) set(u *user.User) {
	p.mu.Lock()
	p.current = u
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	id := ""
	if u != nil {
		id = u.ID
	}
	for _, fn := range listeners {
		fn(id)
	}
}

// UserIDFor derives the stable mock user id of an email address
func UserIDFor(email string) string {
	normalized := strings.TrimSpace(strings.ToLower(email))
	return "user_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalized)).String()
}
