package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scopa/internal/proto"
)

func TestTranscripts(t *testing.T) {
	const testid = "df31ae23ab8b75b5643c2f846c570997edc71333"

	messages := []proto.Message{
		{Role: proto.RoleUser, Content: "How many campaigns are active?"},
		{Role: proto.RoleAssistant, Content: "You have 3 active campaigns."},
	}

	t.Run("roundtrip", func(t *testing.T) {
		transcripts, err := NewTranscripts(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, transcripts.Write(testid, messages))

		got, err := transcripts.Read(testid)
		require.NoError(t, err)
		require.Equal(t, messages, got)
	})

	t.Run("missing", func(t *testing.T) {
		transcripts, err := NewTranscripts(t.TempDir())
		require.NoError(t, err)

		_, err = transcripts.Read(testid)
		require.Error(t, err)
	})

	t.Run("empty id", func(t *testing.T) {
		transcripts, err := NewTranscripts(t.TempDir())
		require.NoError(t, err)

		require.Error(t, transcripts.Write("", messages))
	})

	t.Run("delete", func(t *testing.T) {
		transcripts, err := NewTranscripts(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, transcripts.Write(testid, messages))
		require.NoError(t, transcripts.Delete(testid))

		_, err = transcripts.Read(testid)
		require.Error(t, err)
	})
}
