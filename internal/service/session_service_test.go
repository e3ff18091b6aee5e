package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
)

type fakeSessionStore struct {
	sessions  map[string]*domain.Session
	createErr error
	updateErr error
	deleted   []string
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessionStore) Create(session *domain.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	if session.ID == "" {
		session.ID = "generated-id"
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Get(id string) (*domain.Session, error) {
	return f.sessions[id], nil
}

func (f *fakeSessionStore) ListByUser(userID string) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) Update(session *domain.Session) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeSessionStore) Delete(id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) seed(id, userID string) {
	f.sessions[id] = &domain.Session{ID: id, UserID: userID, Title: "old title"}
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Run("defaults the title", func(t *testing.T) {
		store := newFakeSessionStore()
		svc := NewSessionService(store, zap.NewNop())

		session, err := svc.CreateSession("alice", "  ")
		require.NoError(t, err)
		assert.Equal(t, DefaultSessionTitle, session.Title)
		assert.Equal(t, "alice", session.UserID)
	})

	t.Run("trims the title", func(t *testing.T) {
		svc := NewSessionService(newFakeSessionStore(), zap.NewNop())
		session, err := svc.CreateSession("alice", "  my chat  ")
		require.NoError(t, err)
		assert.Equal(t, "my chat", session.Title)
	})

	t.Run("rejects overlong titles", func(t *testing.T) {
		svc := NewSessionService(newFakeSessionStore(), zap.NewNop())
		_, err := svc.CreateSession("alice", strings.Repeat("x", MaxTitleLength+1))
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("requires an authenticated user", func(t *testing.T) {
		svc := NewSessionService(newFakeSessionStore(), zap.NewNop())
		_, err := svc.CreateSession("", "title")
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestSessionService_RenameSession(t *testing.T) {
	t.Run("renames an owned session", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		session, err := svc.RenameSession("alice", "s1", "new title")
		require.NoError(t, err)
		assert.Equal(t, "new title", session.Title)
	})

	t.Run("requires a title", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		_, err := svc.RenameSession("alice", "s1", "   ")
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc := NewSessionService(newFakeSessionStore(), zap.NewNop())
		_, err := svc.RenameSession("alice", "missing", "title")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("session owned by someone else", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		_, err := svc.RenameSession("bob", "s1", "title")
		require.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("missing user", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		_, err := svc.RenameSession("", "s1", "title")
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestSessionService_ToggleFavorite(t *testing.T) {
	store := newFakeSessionStore()
	store.seed("s1", "alice")
	svc := NewSessionService(store, zap.NewNop())

	session, err := svc.ToggleFavorite("alice", "s1")
	require.NoError(t, err)
	assert.True(t, session.Favorite, "expected favorite after first toggle")

	session, err = svc.ToggleFavorite("alice", "s1")
	require.NoError(t, err)
	assert.False(t, session.Favorite, "expected not favorite after second toggle")
}

func TestSessionService_DeleteSession(t *testing.T) {
	t.Run("deletes an owned session", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		require.NoError(t, svc.DeleteSession("alice", "s1"))
		assert.Equal(t, []string{"s1"}, store.deleted)
	})

	t.Run("refuses someone else's session", func(t *testing.T) {
		store := newFakeSessionStore()
		store.seed("s1", "alice")
		svc := NewSessionService(store, zap.NewNop())

		err := svc.DeleteSession("bob", "s1")
		require.ErrorIs(t, err, domain.ErrForbidden)
		assert.Empty(t, store.deleted, "nothing should have been deleted")
	})
}

func TestSessionService_GetRecentSessions(t *testing.T) {
	store := newFakeSessionStore()
	store.seed("s1", "alice")
	store.seed("s2", "alice")
	store.seed("s3", "bob")
	svc := NewSessionService(store, zap.NewNop())

	sessions, err := svc.GetRecentSessions("alice")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	_, err = svc.GetRecentSessions("")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
