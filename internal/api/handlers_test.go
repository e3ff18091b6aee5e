package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
	"github.com/chatrag/chatrag/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memSessionStore struct {
	sessions map[string]*domain.Session
	nextID   int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *memSessionStore) Create(session *domain.Session) error {
	s.nextID++
	if session.ID == "" {
		session.ID = fmt.Sprintf("s%d", s.nextID)
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *memSessionStore) Get(id string) (*domain.Session, error) {
	return s.sessions[id], nil
}

func (s *memSessionStore) ListByUser(userID string) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *memSessionStore) Update(session *domain.Session) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *memSessionStore) Delete(id string) error {
	delete(s.sessions, id)
	return nil
}

type memMessageStore struct {
	messages []*domain.Message
}

func (s *memMessageStore) Create(message *domain.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

func (s *memMessageStore) ListBySession(sessionID string) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memMessageStore) ListRecent(sessionID string, limit int) ([]*domain.Message, error) {
	all, _ := s.ListBySession(sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type stubChain struct {
	chunks []string
	err    error
}

func (s *stubChain) GenerateStreamingResponse(_ context.Context, _ string, onChunk func(string) error) error {
	for _, c := range s.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return s.err
}

type stubCompleter struct {
	answer string
}

func (s *stubCompleter) Complete(context.Context, string) (string, error) {
	return s.answer, nil
}

type testEnv struct {
	router   *gin.Engine
	sessions *memSessionStore
	messages *memMessageStore
	chain    *stubChain
}

// asUser stands in for BearerAuth, pinning the authenticated user.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newTestEnv(userID string) *testEnv {
	logger := zap.NewNop()
	env := &testEnv{
		sessions: newMemSessionStore(),
		messages: &memMessageStore{},
		chain:    &stubChain{chunks: []string{"The ", "answer."}},
	}

	sessionService := service.NewSessionService(env.sessions, logger)
	messageService := service.NewMessageService(
		env.sessions, env.messages, env.chain, &stubCompleter{answer: "ok"}, "gpt-4o", logger,
	)

	r := gin.New()
	sg := r.Group("/sessions")
	sg.Use(asUser(userID))
	NewSessionsHandler(sessionService).RegisterRoutes(sg)

	mg := r.Group("/messages")
	mg.Use(asUser(userID))
	NewMessagesHandler(messageService).RegisterRoutes(mg)

	env.router = r
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestSessionsAPI(t *testing.T) {
	t.Run("create defaults the title", func(t *testing.T) {
		env := newTestEnv("alice")
		w := env.do(http.MethodPost, "/sessions", `{}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var got domain.Session
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, service.DefaultSessionTitle, got.Title)
		assert.Equal(t, "alice", got.UserID)
	})

	t.Run("rename without a title is a 400", func(t *testing.T) {
		env := newTestEnv("alice")
		w := env.do(http.MethodPut, "/sessions/s1/rename", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rename of a missing session is a 404", func(t *testing.T) {
		env := newTestEnv("alice")
		w := env.do(http.MethodPut, "/sessions/missing/rename", `{"title":"x"}`)
		assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	})

	t.Run("foreign session is a 403", func(t *testing.T) {
		env := newTestEnv("bob")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}
		w := env.do(http.MethodDelete, "/sessions/s1", "")
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	})

	t.Run("list is an empty array for a new user", func(t *testing.T) {
		env := newTestEnv("alice")
		w := env.do(http.MethodGet, "/sessions", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
	})
}

func TestMessagesAPI(t *testing.T) {
	t.Run("create rejects an unknown role", func(t *testing.T) {
		env := newTestEnv("alice")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}
		w := env.do(http.MethodPost, "/messages/s1", `{"role":"system","content":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("create persists and answers", func(t *testing.T) {
		env := newTestEnv("alice")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}
		w := env.do(http.MethodPost, "/messages/s1", `{"role":"user","content":"hi"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Len(t, env.messages.messages, 2, "expected user message plus generated reply")
	})
}

func TestStreamAPI(t *testing.T) {
	t.Run("streams content and a done event", func(t *testing.T) {
		env := newTestEnv("alice")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}

		w := env.do(http.MethodPost, "/messages/s1/stream", `{"question":"q"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

		body := w.Body.String()
		assert.Contains(t, body, `event: content`)
		assert.Contains(t, body, `{"type":"content","content":"The "}`)
		assert.Contains(t, body, `event: done`)

		// The accumulated reply was persisted after the question.
		require.Len(t, env.messages.messages, 2)
		assert.Equal(t, "The answer.", env.messages.messages[1].Content)
	})

	t.Run("failure before any output is a plain error response", func(t *testing.T) {
		env := newTestEnv("bob")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}

		w := env.do(http.MethodPost, "/messages/s1/stream", `{"question":"q"}`)
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
		assert.NotContains(t, w.Body.String(), "event:", "expected a JSON error, not SSE")
	})

	t.Run("failure before any output is a plain 500", func(t *testing.T) {
		env := newTestEnv("alice")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}
		env.chain.err = errors.New("model unavailable")
		env.chain.chunks = nil

		w := env.do(http.MethodPost, "/messages/s1/stream", `{"question":"q"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
		assert.Len(t, env.messages.messages, 1, "expected only the question persisted")
	})

	t.Run("mid-stream failure emits an error event", func(t *testing.T) {
		env := newTestEnv("alice")
		env.sessions.sessions["s1"] = &domain.Session{ID: "s1", UserID: "alice"}
		env.chain.err = errors.New("connection reset")
		env.chain.chunks = []string{"partial "}

		w := env.do(http.MethodPost, "/messages/s1/stream", `{"question":"q"}`)
		body := w.Body.String()
		assert.Contains(t, body, `event: error`)
		assert.NotContains(t, body, `event: done`, "done must not follow a failed stream")
		// All-or-nothing: the partial reply is not persisted.
		assert.Len(t, env.messages.messages, 1, "expected only the question persisted")
	})
}
