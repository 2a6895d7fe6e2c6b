package cache

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dotcommander/scopa/internal/proto"
)

// Transcripts stores full session transcripts as JSON documents, sharded
// by session ID prefix.
type Transcripts struct {
	cache *Cache[[]proto.Message]
}

// NewTranscripts creates the transcript cache under the given base directory.
func NewTranscripts(baseDir string) (*Transcripts, error) {
	c, err := New[[]proto.Message](baseDir, SessionCache)
	if err != nil {
		return nil, err
	}
	return &Transcripts{cache: c}, nil
}

// Read loads a session transcript by ID.
func (t *Transcripts) Read(id string) ([]proto.Message, error) {
	var messages []proto.Message
	err := t.cache.Read(id, func(r io.Reader) error {
		if err := json.NewDecoder(r).Decode(&messages); err != nil {
			return fmt.Errorf("decode transcript: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Write stores a session transcript by ID.
func (t *Transcripts) Write(id string, messages []proto.Message) error {
	return t.cache.Write(id, func(w io.Writer) error {
		if err := json.NewEncoder(w).Encode(messages); err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		return nil
	})
}

// Delete removes a session transcript by ID.
func (t *Transcripts) Delete(id string) error {
	return t.cache.Delete(id)
}
