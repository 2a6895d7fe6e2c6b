// Package storage keeps the index of saved chat sessions.
//
// The index is an append-only JSONL event log guarded by a file lock, with
// periodic compaction. Transcript payloads live next to it in the cache
// package; this index only holds metadata for lookup and listing.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrNoMatches is returned when no sessions match the query.
	ErrNoMatches = errors.New("no sessions found")
	// ErrManyMatches is returned when multiple sessions match the query.
	ErrManyMatches = errors.New("multiple sessions matched the input")
)

const (
	indexFileName      = "index.jsonl"
	compactMinOps      = 256
	compactScaleFactor = 4
)

type sessionEvent struct {
	Op      string   `json:"op"`
	ID      string   `json:"id,omitempty"`
	Session *Session `json:"session,omitempty"`
}

// Session is one saved chat session's metadata.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Model     *string   `json:"model,omitempty"`
}

// Open loads the session metadata store from the given datasource.
//
// The datasource is usually a directory path. The special value ":memory:"
// creates a temporary store (primarily used for tests).
func Open(ds string) (*DB, error) {
	dir, cleanupDir, err := resolveStoreDir(ds)
	if err != nil {
		return nil, fmt.Errorf("could not resolve store path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create store directory: %w", err)
	}

	db := &DB{
		indexPath:      filepath.Join(dir, indexFileName),
		lock:           flock.New(filepath.Join(dir, "index.lock")),
		sessions:       make(map[string]Session),
		cleanupTempDir: cleanupDir,
	}
	if err := db.load(); err != nil {
		return nil, err
	}

	return db, nil
}

// DB is an append-only JSONL-backed session metadata index.
type DB struct {
	mu             sync.RWMutex
	indexPath      string
	lock           *flock.Flock
	sessions       map[string]Session
	ops            int
	cleanupTempDir string
}

// Close releases temporary resources (used for :memory: stores).
func (db *DB) Close() error {
	if db.cleanupTempDir == "" {
		return nil
	}
	if err := os.RemoveAll(db.cleanupTempDir); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Save upserts a session metadata record.
func (db *DB) Save(id, title, model string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("Save: %w", errors.New("empty id"))
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("Save: %w", errors.New("empty title"))
	}

	modelCopy := model
	sess := Session{
		ID:        id,
		Title:     title,
		UpdatedAt: time.Now().UTC(),
		Model:     &modelCopy,
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.sessions[id] = sess
	if err := db.appendEventLocked(sessionEvent{Op: "upsert", Session: &sess}); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if err := db.compactIfNeededLocked(); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	return nil
}

// Delete removes a session record by ID.
func (db *DB) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("Delete: %w", errors.New("empty id"))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.sessions[id]; !ok {
		return nil
	}
	delete(db.sessions, id)

	if err := db.appendEventLocked(sessionEvent{Op: "delete", ID: id}); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := db.compactIfNeededLocked(); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// ListOlderThan returns sessions older than the given duration.
func (db *DB) ListOlderThan(t time.Duration) []Session {
	cutoff := time.Now().Add(-t)

	db.mu.RLock()
	sessions := make([]Session, 0, len(db.sessions))
	for _, sess := range db.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			sessions = append(sessions, sess)
		}
	}
	db.mu.RUnlock()

	sortSessionsByUpdatedAtDesc(sessions)
	return sessions
}

// FindHEAD returns the most recently updated session.
func (db *DB) FindHEAD() (*Session, error) {
	list := db.List()
	if len(list) == 0 {
		return nil, fmt.Errorf("FindHEAD: %w", ErrNoMatches)
	}
	head := list[0]
	return &head, nil
}

// Completions returns shell completion candidates for IDs and titles.
func (db *DB) Completions(in string) []string {
	resultSet := make(map[string]struct{})

	db.mu.RLock()
	for _, sess := range db.sessions {
		if strings.HasPrefix(sess.ID, in) {
			displayID := sess.ID
			if len(in) < SHA1Short && len(sess.ID) > SHA1Short {
				displayID = sess.ID[:SHA1Short]
			}
			resultSet[fmt.Sprintf("%s\t%s", displayID, sess.Title)] = struct{}{}
		}
		if strings.HasPrefix(sess.Title, in) {
			displayID := sess.ID
			if len(sess.ID) > SHA1Short {
				displayID = sess.ID[:SHA1Short]
			}
			resultSet[fmt.Sprintf("%s\t%s", sess.Title, displayID)] = struct{}{}
		}
	}
	db.mu.RUnlock()

	result := make([]string, 0, len(resultSet))
	for value := range resultSet {
		result = append(result, value)
	}
	sort.Strings(result)

	return result
}

// Find resolves a session by ID prefix or exact title.
func (db *DB) Find(in string) (*Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	matches := make([]Session, 0, len(db.sessions))
	if len(in) < SHA1MinLen {
		for _, sess := range db.sessions {
			if sess.Title == in {
				matches = append(matches, sess)
			}
		}
	} else {
		for _, sess := range db.sessions {
			if strings.HasPrefix(sess.ID, in) || sess.Title == in {
				matches = append(matches, sess)
			}
		}
	}

	if len(matches) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrManyMatches, in)
	}
	if len(matches) == 1 {
		return &matches[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatches, in)
}

// List returns sessions sorted by most recently updated.
func (db *DB) List() []Session {
	db.mu.RLock()
	sessions := make([]Session, 0, len(db.sessions))
	for _, sess := range db.sessions {
		sessions = append(sessions, sess)
	}
	db.mu.RUnlock()

	sortSessionsByUpdatedAtDesc(sessions)
	return sessions
}

func sortSessionsByUpdatedAtDesc(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

func resolveStoreDir(ds string) (dir string, cleanupDir string, err error) {
	if ds == ":memory:" {
		tempDir, err := os.MkdirTemp("", "scopa-sessions-*")
		if err != nil {
			return "", "", fmt.Errorf("could not create temp sessions directory: %w", err)
		}
		return tempDir, tempDir, nil
	}
	return ds, "", nil
}

func (db *DB) load() error {
	if db.lock != nil {
		if err := db.lock.Lock(); err != nil {
			return fmt.Errorf("could not lock index file: %w", err)
		}
		defer func() { _ = db.lock.Unlock() }()
	}

	file, err := os.Open(db.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not open index file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var evt sessionEvent
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			return fmt.Errorf("could not parse index event: %w", err)
		}
		if err := db.applyEvent(&evt); err != nil {
			return err
		}
		db.ops++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not scan index file: %w", err)
	}

	return nil
}

func (db *DB) applyEvent(evt *sessionEvent) error {
	switch evt.Op {
	case "upsert":
		if evt.Session == nil {
			return fmt.Errorf("invalid upsert event: missing session")
		}
		if strings.TrimSpace(evt.Session.ID) == "" {
			return fmt.Errorf("invalid upsert event: empty id")
		}
		sess := *evt.Session
		db.sessions[sess.ID] = sess
	case "delete":
		if strings.TrimSpace(evt.ID) == "" {
			return fmt.Errorf("invalid delete event: empty id")
		}
		delete(db.sessions, evt.ID)
	default:
		return fmt.Errorf("invalid index event op: %q", evt.Op)
	}
	return nil
}

func (db *DB) appendEventLocked(evt sessionEvent) error {
	if db.lock != nil {
		if err := db.lock.Lock(); err != nil {
			return fmt.Errorf("lock index: %w", err)
		}
		defer func() { _ = db.lock.Unlock() }()
	}

	file, err := os.OpenFile(db.indexPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = file.Close() }()

	bts, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal index event: %w", err)
	}
	bts = append(bts, '\n')
	if _, err := file.Write(bts); err != nil {
		return fmt.Errorf("write index event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}

	db.ops++
	return nil
}

func (db *DB) compactIfNeededLocked() error {
	if db.ops < compactMinOps {
		return nil
	}
	if len(db.sessions) > 0 && db.ops < len(db.sessions)*compactScaleFactor {
		return nil
	}
	return db.compactLocked()
}

func (db *DB) compactLocked() error {
	if db.lock != nil {
		if err := db.lock.Lock(); err != nil {
			return fmt.Errorf("lock index: %w", err)
		}
		defer func() { _ = db.lock.Unlock() }()
	}

	items := make([]Session, 0, len(db.sessions))
	for _, sess := range db.sessions {
		items = append(items, sess)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})

	tmpPath := db.indexPath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open compacted index: %w", err)
	}

	enc := json.NewEncoder(file)
	for _, sess := range items {
		event := sessionEvent{Op: "upsert", Session: &sess}
		if err := enc.Encode(event); err != nil {
			_ = file.Close()
			return fmt.Errorf("write compacted index: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync compacted index: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close compacted index: %w", err)
	}

	if err := os.Rename(tmpPath, db.indexPath); err != nil {
		return fmt.Errorf("replace index with compacted version: %w", err)
	}
	_ = syncDir(filepath.Dir(db.indexPath))

	db.ops = len(db.sessions)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	defer d.Close() //nolint:errcheck
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}
