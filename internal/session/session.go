// Package session manages the persistent conversation memory used by the
// research planner.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nlpodyssey/openai-agents-go/memory"
	"github.com/rs/zerolog/log"
)

const idPrefix = "session_"

// NewID returns a fresh session identifier of the form session_<8 hex>.
func NewID() string {
	return idPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Store opens SQLite-backed sessions in a single database file.
type Store struct {
	DSN    string
	UserID string
}

// NewStore prepares the directory holding dsn. An empty dsn keeps sessions in memory.
func NewStore(dsn, userID string) (*Store, error) {
	if dsn != "" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}
	return &Store{DSN: dsn, UserID: userID}, nil
}

// Session is an open conversation together with its identifier.
type Session struct {
	ID string
	*memory.SQLiteSession
}

// Open opens the session with the given id, creating a new id when empty.
func (s *Store) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = NewID()
	}
	sqlSession, err := memory.NewSQLiteSession(ctx, memory.SQLiteSessionParams{
		SessionID:        s.key(id),
		DBDataSourceName: s.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	log.Debug().Str("session", id).Str("user", s.UserID).Msg("session opened")
	return &Session{ID: id, SQLiteSession: sqlSession}, nil
}

// Rotate closes current and opens a brand new session.
func (s *Store) Rotate(ctx context.Context, current *Session) (*Session, error) {
	if current != nil {
		if err := current.Close(); err != nil {
			log.Warn().Err(err).Str("session", current.ID).Msg("close session")
		}
	}
	return s.Open(ctx, "")
}

// key scopes session ids per user so two users never share history.
func (s *Store) key(id string) string {
	if s.UserID == "" {
		return id
	}
	return s.UserID + ":" + id
}
