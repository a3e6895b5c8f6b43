// Package memory persists lightweight per-user memory as a flat list
// of free-text facts in a single JSON file. Updates always rewrite the
// whole list; the model decides what the new list is.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

// FileName is the memory file inside the cache directory.
const FileName = "user_memories.json"

// Store reads and rewrites the user memory file.
type Store struct {
	path   string
	logger log.Logger
}

// Config contains the parameters for a Store.
type Config struct {
	Dir    string     // directory holding the memory file (required)
	Logger log.Logger // required
}

// New creates a Store, creating the directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("memory directory is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating memory directory: %w", err)
	}
	return &Store{path: filepath.Join(cfg.Dir, FileName), logger: cfg.Logger}, nil
}

// Memories returns the stored facts. A missing or unreadable file is
// an empty list: losing memory must never break a conversation turn.
func (s *Store) Memories() []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("reading memories", "error", err)
		}
		return nil
	}
	var memories []string
	if err := json.Unmarshal(data, &memories); err != nil {
		s.logger.Warn("decoding memories", "error", err)
		return nil
	}
	return memories
}

// Formatted returns the facts as a bulleted list for prompt injection,
// or the empty string when there are none.
func (s *Store) Formatted() string {
	memories := s.Memories()
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range memories {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(m)
	}
	return b.String()
}

// Save replaces the stored facts with memories.
func (s *Store) Save(memories []string) error {
	if memories == nil {
		memories = []string{}
	}
	data, err := json.Marshal(memories)
	if err != nil {
		return fmt.Errorf("encoding memories: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing memories: %w", err)
	}
	s.logger.Info("saved memories", "count", len(memories))
	return nil
}
