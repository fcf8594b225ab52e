package manager

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dash2hls/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_CreateGetListRemove(t *testing.T) {
	m := New(t.TempDir(), discardLogger(), nil)

	id, err := m.Create(session.Config{
		MPDURL:       "https://example.invalid/stream.mpd",
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	assert.Equal(t, 1, m.ActiveCount())

	require.NoError(t, m.Remove(id))
	_, err = m.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestManager_RemoveUnknownReturnsNotFound(t *testing.T) {
	m := New(t.TempDir(), discardLogger(), nil)
	err := m.Remove("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_OutputDirDefaultsUnderBase(t *testing.T) {
	base := t.TempDir()
	m := New(base, discardLogger(), nil)

	id, err := m.Create(session.Config{MPDURL: "https://example.invalid/s.mpd", PollInterval: time.Hour})
	require.NoError(t, err)
	defer m.Remove(id)

	dir := m.OutputDir(id)
	assert.Contains(t, dir, base)
	assert.Contains(t, dir, id)
}
