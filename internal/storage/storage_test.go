package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	m := NewMemory()

	_, ok := m.Get("missing")
	assert.False(t, ok)

	require.NoError(t, m.Set("k", "v"))
	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, m.Remove("k"))
	_, ok = m.Get("k")
	assert.False(t, ok)

	assert.NoError(t, m.Remove("never-existed"))
}

func TestFilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set("history.streamer", `{"points_earned":70}`))

	reopened, err := NewFile(path)
	require.NoError(t, err)

	v, ok := reopened.Get("history.streamer")
	assert.True(t, ok)
	assert.Equal(t, `{"points_earned":70}`, v)
}

func TestFileRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set("k", "v"))
	require.NoError(t, f.Remove("k"))

	reopened, err := NewFile(path)
	require.NoError(t, err)
	_, ok := reopened.Get("k")
	assert.False(t, ok)
}

func TestFileMissingStartsEmpty(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	_, ok := f.Get("anything")
	assert.False(t, ok)
}
