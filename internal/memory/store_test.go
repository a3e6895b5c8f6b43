package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal-dev/schoolscout/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir(), Logger: log.NewNop()})
	require.NoError(t, err)
	return s
}

func TestMemories_MissingFile(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.Memories())
	assert.Equal(t, "", s.Formatted())
}

func TestSave_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	memories := []string{
		"Lives in Mountain View",
		"Has a daughter entering 6th grade",
	}
	require.NoError(t, s.Save(memories))
	assert.Equal(t, memories, s.Memories())
	assert.Equal(t, "- Lives in Mountain View\n- Has a daughter entering 6th grade", s.Formatted())
}

func TestSave_RewritesWholeList(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save([]string{"old fact", "another old fact"}))
	require.NoError(t, s.Save([]string{"the only fact now"}))
	assert.Equal(t, []string{"the only fact now"}, s.Memories())
}

func TestMemories_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{Dir: dir, Logger: log.NewNop()})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))
	assert.Empty(t, s.Memories(), "corrupt memory degrades to empty, never errors")
}
