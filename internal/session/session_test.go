package session

import (
	"context"
	"errors"
	"testing"

	"dreamtales/internal/domain/library"
	"dreamtales/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKV(t *testing.T) *storage.FileKV {
	t.Helper()
	kv, err := storage.NewFileKV(t.TempDir())
	require.NoError(t, err)
	return kv
}

type unreadableKV struct {
	storage.KV
}

func (unreadableKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk unavailable")
}

func TestRestoreReadFailureFinishesLoading(t *testing.T) {
	p := NewProvider(unreadableKV{KV: newKV(t)})
	store := library.NewStore(p.kv, "")
	store.Bind(p.Subscribe)
	require.True(t, store.IsLoading())

	assert.Error(t, p.Restore(context.Background()))
	assert.False(t, p.IsLoading())
	assert.False(t, p.IsAuthenticated())
	assert.False(t, store.IsLoading())
	assert.Empty(t, store.Stories())
}

func TestLoginPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)

	p := NewProvider(kv)
	require.NoError(t, p.Restore(ctx))
	assert.False(t, p.IsAuthenticated())
	assert.False(t, p.IsLoading())

	u, err := p.Login(ctx, "Parent@Example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", u.Email)
	assert.Equal(t, UserIDFor("parent@example.com"), u.ID)

	restored := NewProvider(kv)
	require.NoError(t, restored.Restore(ctx))
	require.NotNil(t, restored.Current())
	assert.Equal(t, u.ID, restored.UserID())
	assert.True(t, restored.Current().CreatedAt.Equal(u.CreatedAt))
}

func TestSameEmailSameUser(t *testing.T) {
	assert.Equal(t, UserIDFor("a@b.c"), UserIDFor(" A@B.C "))
	assert.NotEqual(t, UserIDFor("a@b.c"), UserIDFor("x@b.c"))
}

func TestLoginRejectsInvalidEmail(t *testing.T) {
	p := NewProvider(newKV(t))
	_, err := p.Login(context.Background(), "   ", "pw")
	assert.Error(t, err)
	assert.False(t, p.IsAuthenticated())
}

func TestListenersFollowUserChanges(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(newKV(t))

	var seen []string
	p.Subscribe(func(userID string) { seen = append(seen, userID) })

	u, err := p.Login(ctx, "one@example.com", "")
	require.NoError(t, err)
	require.NoError(t, p.Logout(ctx))

	assert.Equal(t, []string{u.ID, ""}, seen)
	assert.Nil(t, p.Current())
}

func TestRestoreDropsMalformedUser(t *testing.T) {
	ctx := context.Background()
	kv := newKV(t)
	require.NoError(t, kv.Put(ctx, UserKey, []byte("{not json")))

	p := NewProvider(kv)
	require.NoError(t, p.Restore(ctx))
	assert.False(t, p.IsAuthenticated())

	_, found, err := kv.Get(ctx, UserKey)
	require.NoError(t, err)
	assert.False(t, found)
}
