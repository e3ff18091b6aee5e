package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chatrag/chatrag/internal/domain"
)

// MaxTitleLength is the longest allowed session title.
const MaxTitleLength = 100

// DefaultSessionTitle is used when no title is provided.
const DefaultSessionTitle = "New Session"

// SessionStore persists chat sessions.
type SessionStore interface {
	Create(session *domain.Session) error
	Get(id string) (*domain.Session, error)
	ListByUser(userID string) ([]*domain.Session, error)
	Update(session *domain.Session) error
	Delete(id string) error
}

// SessionService handles chat session lifecycle, scoped by owner.
type SessionService struct {
	sessions SessionStore
	logger   *zap.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(sessions SessionStore, logger *zap.Logger) *SessionService {
	return &SessionService{sessions: sessions, logger: logger}
}

// CreateSession creates a session for the user. Title is optional; when
// present it must be non-blank and at most MaxTitleLength characters.
func (s *SessionService) CreateSession(userID, title string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing authenticated user", domain.ErrUnauthorized)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultSessionTitle
	}
	if len(title) > MaxTitleLength {
		return nil, fmt.Errorf("%w: title cannot exceed %d characters", domain.ErrInvalidArgument, MaxTitleLength)
	}

	session := &domain.Session{UserID: userID, Title: title}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	s.logger.Info("created session", zap.String("session_id", session.ID), zap.String("user_id", userID))
	return session, nil
}

// RenameSession sets a new title on a session owned by the user.
func (s *SessionService) RenameSession(userID, id, title string) (*domain.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	if len(title) > MaxTitleLength {
		return nil, fmt.Errorf("%w: title cannot exceed %d characters", domain.ErrInvalidArgument, MaxTitleLength)
	}

	session, err := s.ownedSession(userID, id)
	if err != nil {
		return nil, err
	}
	session.Title = title
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session owned by the user, cascading to its
// messages.
func (s *SessionService) DeleteSession(userID, id string) error {
	if _, err := s.ownedSession(userID, id); err != nil {
		return err
	}
	return s.sessions.Delete(id)
}

// ToggleFavorite flips the favorite flag on a session owned by the user.
func (s *SessionService) ToggleFavorite(userID, id string) (*domain.Session, error) {
	session, err := s.ownedSession(userID, id)
	if err != nil {
		return nil, err
	}
	session.Favorite = !session.Favorite
	if err := s.sessions.Update(session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetRecentSessions returns the user's sessions, newest first.
func (s *SessionService) GetRecentSessions(userID string) ([]*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing authenticated user", domain.ErrUnauthorized)
	}
	return s.sessions.ListByUser(userID)
}

func (s *SessionService) ownedSession(userID, id string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing authenticated user", domain.ErrUnauthorized)
	}
	if id == "" {
		return nil, fmt.Errorf("%w: sessionId is required", domain.ErrInvalidArgument)
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session not found", domain.ErrNotFound)
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: you do not have access to this session", domain.ErrForbidden)
	}
	return session, nil
}
