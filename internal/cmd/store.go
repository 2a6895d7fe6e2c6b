package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
	"github.com/dotcommander/scopa/internal/present"
	"github.com/dotcommander/scopa/internal/proto"
	"github.com/dotcommander/scopa/internal/storage"
	"github.com/dotcommander/scopa/internal/storage/cache"
)

// sessionStore bundles the DB index and transcript cache that together form
// a session store. Most cmd functions need both; this avoids repeating the
// open-and-check boilerplate at every call site.
type sessionStore struct {
	DB          *storage.DB
	Transcripts *cache.Transcripts
}

// openSessionStore opens both the metadata DB and the transcript cache.
func openSessionStore(cachePath string) (*sessionStore, error) {
	transcripts, err := cache.NewTranscripts(cachePath)
	if err != nil {
		return nil, fmt.Errorf("open transcript cache: %w", err)
	}
	db, err := storage.Open(filepath.Join(cachePath, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	return &sessionStore{DB: db, Transcripts: transcripts}, nil
}

// Close releases the underlying DB resources.
func (s *sessionStore) Close() error {
	return s.DB.Close()
}

func saveSession(cfg *config.Config, store *sessionStore, id, title string, msgs []proto.Message) error {
	if cfg.NoSave {
		return nil
	}

	title = strings.TrimSpace(title)
	if storage.SHA1Regexp.MatchString(title) || title == "" {
		title = firstLine(lastPrompt(msgs))
	}
	if title == "" {
		return nil
	}

	errReason := fmt.Sprintf(
		"There was a problem writing %s to the history. Use %s to disable it.",
		id,
		present.StderrStyles().InlineCode.Render("--no-save"),
	)
	if err := store.Transcripts.Write(id, msgs); err != nil {
		return errs.Wrap(err, errReason)
	}
	if err := store.DB.Save(id, title, cfg.Model); err != nil {
		_ = store.Transcripts.Delete(id)
		return errs.Wrap(err, errReason)
	}
	return nil
}

func deleteSessionByID(cfg *config.Config, store *sessionStore, id string) error {
	if err := store.DB.Delete(id); err != nil {
		return fmt.Errorf("delete session index: %w", err)
	}
	if err := store.Transcripts.Delete(id); err != nil {
		return fmt.Errorf("delete session transcript: %w", err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(os.Stderr, "Session deleted:", id[:storage.SHA1MinLen])
	}
	return nil
}

func lastPrompt(messages []proto.Message) string {
	var result string
	for _, msg := range messages {
		if msg.Role != proto.RoleUser {
			continue
		}
		if msg.Content == "" {
			continue
		}
		result = msg.Content
	}
	return result
}

func firstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}
