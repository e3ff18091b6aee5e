package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/chatrag/chatrag/internal/domain"
)

// SessionRepository handles session persistence
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(session *domain.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	metadataJSON, _ := json.Marshal(session.Metadata)

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, user_id, title, favorite, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.UserID, session.Title, session.Favorite,
		string(metadataJSON), session.CreatedAt, session.UpdatedAt)

	return err
}

// Get retrieves a session by ID. Returns nil when no session exists.
func (r *SessionRepository) Get(id string) (*domain.Session, error) {
	row := r.db.QueryRow(`
		SELECT id, user_id, title, favorite, metadata, created_at, updated_at
		FROM sessions WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListByUser retrieves all sessions of a user, newest first
func (r *SessionRepository) ListByUser(userID string) ([]*domain.Session, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, title, favorite, metadata, created_at, updated_at
		FROM sessions WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Update persists title, favorite flag and metadata changes
func (r *SessionRepository) Update(session *domain.Session) error {
	session.UpdatedAt = time.Now().UTC()
	metadataJSON, _ := json.Marshal(session.Metadata)

	_, err := r.db.Exec(`
		UPDATE sessions SET title = ?, favorite = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, session.Title, session.Favorite, string(metadataJSON), session.UpdatedAt, session.ID)
	return err
}

// Delete removes a session; messages cascade
func (r *SessionRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	session := &domain.Session{}
	var metadataJSON sql.NullString

	if err := row.Scan(&session.ID, &session.UserID, &session.Title,
		&session.Favorite, &metadataJSON, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		json.Unmarshal([]byte(metadataJSON.String), &session.Metadata)
	}
	return session, nil
}
