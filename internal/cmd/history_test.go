package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/proto"
	"github.com/dotcommander/scopa/internal/storage"
	"github.com/dotcommander/scopa/internal/storage/cache"
)

// newTestSessionStore creates a sessionStore backed by a temp directory.
// The DB and cache are cleaned up automatically when the test ends.
func newTestSessionStore(t *testing.T) (*sessionStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	sessDir := filepath.Join(tmpDir, "sessions")
	require.NoError(t, os.MkdirAll(sessDir, 0o700))

	db, err := storage.Open(sessDir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	transcripts, err := cache.NewTranscripts(tmpDir)
	require.NoError(t, err)

	return &sessionStore{DB: db, Transcripts: transcripts}, tmpDir
}

func TestListSessions(t *testing.T) {
	t.Run("returns no error when no sessions exist", func(t *testing.T) {
		_, tmpDir := newTestSessionStore(t)
		cfg := &config.Config{
			Settings: config.Settings{CachePath: tmpDir},
		}

		err := listSessions(cfg, true)
		require.NoError(t, err)
	})

	t.Run("lists sessions when they exist", func(t *testing.T) {
		store, tmpDir := newTestSessionStore(t)
		require.NoError(t, store.DB.Save("abc123def456", "test session", "test-model"))

		cfg := &config.Config{
			Settings: config.Settings{CachePath: tmpDir},
		}

		err := listSessions(cfg, true)
		require.NoError(t, err)
	})
}

func TestDeleteSessions(t *testing.T) {
	t.Run("deletes single session", func(t *testing.T) {
		store, tmpDir := newTestSessionStore(t)
		require.NoError(t, store.DB.Save("abc123def456", "test session", "test-model"))
		require.NoError(t, store.Transcripts.Write("abc123def456", []proto.Message{}))
		// Close so deleteSessions can open its own store.
		require.NoError(t, store.Close())

		cfg := &config.Config{
			Settings: config.Settings{CachePath: tmpDir, Quiet: true},
		}

		err := deleteSessions(cfg, []string{"abc123def456"})
		require.NoError(t, err)

		// Re-open to verify deletion.
		db, err := storage.Open(filepath.Join(tmpDir, "sessions"))
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck
		_, err = db.Find("abc123def456")
		require.Error(t, err)
	})

	t.Run("deletes multiple sessions", func(t *testing.T) {
		store, tmpDir := newTestSessionStore(t)
		require.NoError(t, store.DB.Save("abc123def456", "first", "test-model"))
		require.NoError(t, store.DB.Save("def456abc123", "second", "test-model"))
		require.NoError(t, store.Transcripts.Write("abc123def456", []proto.Message{}))
		require.NoError(t, store.Transcripts.Write("def456abc123", []proto.Message{}))
		require.NoError(t, store.Close())

		cfg := &config.Config{
			Settings: config.Settings{CachePath: tmpDir, Quiet: true},
		}

		err := deleteSessions(cfg, []string{"abc123def456", "def456abc123"})
		require.NoError(t, err)

		db, err := storage.Open(filepath.Join(tmpDir, "sessions"))
		require.NoError(t, err)
		defer db.Close() //nolint:errcheck
		sessions := db.List()
		require.Len(t, sessions, 0)
	})
}

func TestDeleteSessionByID(t *testing.T) {
	t.Run("deletes session from both index and cache", func(t *testing.T) {
		store, _ := newTestSessionStore(t)
		require.NoError(t, store.DB.Save("test123abc456", "test", "test-model"))
		require.NoError(t, store.Transcripts.Write("test123abc456", []proto.Message{}))

		cfg := &config.Config{
			Settings: config.Settings{Quiet: true},
		}

		err := deleteSessionByID(cfg, store, "test123abc456")
		require.NoError(t, err)

		_, err = store.DB.Find("test123abc456")
		require.Error(t, err)
	})
}

func TestSaveSession(t *testing.T) {
	msgs := []proto.Message{
		{Role: proto.RoleUser, Content: "how are my campaigns pacing?"},
		{Role: proto.RoleAssistant, Content: "All on track."},
	}

	t.Run("titles from the last prompt", func(t *testing.T) {
		store, _ := newTestSessionStore(t)
		cfg := &config.Config{Settings: config.Settings{Quiet: true, Model: "test-model"}}

		id := storage.NewSessionID()
		require.NoError(t, saveSession(cfg, store, id, "", msgs))

		sess, err := store.DB.Find(id[:8])
		require.NoError(t, err)
		require.Equal(t, "how are my campaigns pacing?", sess.Title)

		got, err := store.Transcripts.Read(id)
		require.NoError(t, err)
		require.Equal(t, msgs, got)
	})

	t.Run("keeps an explicit title", func(t *testing.T) {
		store, _ := newTestSessionStore(t)
		cfg := &config.Config{Settings: config.Settings{Quiet: true, Model: "test-model"}}

		id := storage.NewSessionID()
		require.NoError(t, saveSession(cfg, store, id, "pacing", msgs))

		sess, err := store.DB.Find(id[:8])
		require.NoError(t, err)
		require.Equal(t, "pacing", sess.Title)
	})

	t.Run("no-save skips everything", func(t *testing.T) {
		store, _ := newTestSessionStore(t)
		cfg := &config.Config{Settings: config.Settings{Quiet: true, NoSave: true}}

		id := storage.NewSessionID()
		require.NoError(t, saveSession(cfg, store, id, "pacing", msgs))
		require.Empty(t, store.DB.List())
	})
}
