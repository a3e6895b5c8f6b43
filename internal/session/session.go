// Package session persists conversation histories as JSON files so a
// conversation can be resumed across runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvidal-dev/schoolscout/internal/llm"
	"github.com/mvidal-dev/schoolscout/internal/log"
)

// Session is one persisted conversation.
type Session struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Messages  []llm.Message `json:"messages"`
}

// Config contains the parameters for a Store.
type Config struct {
	Dir    string           // session directory (required)
	Logger log.Logger       // required
	Now    func() time.Time // nil = time.Now; injectable for tests
}

// Store reads and writes sessions under a directory, one file per
// session.
type Store struct {
	dir    string
	now    func() time.Time
	logger log.Logger
}

// New creates a Store, creating the session directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("session directory is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{dir: cfg.Dir, now: now, logger: cfg.Logger}, nil
}

// Create starts a new session. It is not persisted until Save.
func (s *Store) Create() *Session {
	now := s.now()
	return &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Save writes the session to disk, refreshing its UpdatedAt.
func (s *Store) Save(sess *Session) error {
	sess.UpdatedAt = s.now()
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o600); err != nil {
		return fmt.Errorf("writing session %s: %w", sess.ID, err)
	}
	return nil
}

// Load reads one session by id.
func (s *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns all stored sessions, most recently updated first.
// Unreadable files are skipped with a warning.
func (s *Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sess, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			s.logger.Warn("skipping unreadable session", "file", entry.Name(), "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
