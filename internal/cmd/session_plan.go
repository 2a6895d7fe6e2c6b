package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/x/exp/ordered"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
	"github.com/dotcommander/scopa/internal/storage"
)

type sessionPlan struct {
	WriteID string
	Title   string
	ReadID  string
	Model   string
}

func planSession(cfg *config.Config, db *storage.DB) (sessionPlan, error) {
	continueLast := cfg.ContinueLast || (cfg.Continue != "" && cfg.Title == "")
	readID := cfg.Continue
	writeID := ordered.First(cfg.Title, cfg.Continue)
	title := writeID
	model := cfg.Model

	if readID != "" || continueLast {
		found, err := findReadSession(db, readID, true)
		if err != nil {
			return sessionPlan{}, errs.Wrap(err, "Could not find the session.")
		}
		if found != nil {
			readID = found.ID
			if found.Model != nil {
				model = *found.Model
			}
		}
	}

	// if we are continuing last, update the existing session
	if continueLast {
		writeID = readID
	}

	if writeID == "" {
		writeID = storage.NewSessionID()
	}

	if !storage.SHA1Regexp.MatchString(writeID) {
		sess, err := db.Find(writeID)
		if err != nil {
			// it's a new session with a title
			writeID = storage.NewSessionID()
		} else {
			writeID = sess.ID
		}
	}

	return sessionPlan{
		WriteID: writeID,
		Title:   title,
		ReadID:  readID,
		Model:   model,
	}, nil
}

// findReadSession resolves in to a saved session. With fallback set, an
// unknown name resolves to the most recent session instead of failing, so
// continuing under a brand-new title still picks up the last transcript.
func findReadSession(db *storage.DB, in string, fallback bool) (*storage.Session, error) {
	if in == "" {
		sess, err := db.FindHEAD()
		if err != nil {
			return nil, fmt.Errorf("find latest session: %w", err)
		}
		return sess, nil
	}
	sess, err := db.Find(in)
	if err == nil {
		return sess, nil
	}
	if fallback && errors.Is(err, storage.ErrNoMatches) {
		sess, err := db.FindHEAD()
		if err != nil {
			return nil, fmt.Errorf("find latest session: %w", err)
		}
		return sess, nil
	}
	return nil, fmt.Errorf("find session: %w", err)
}
