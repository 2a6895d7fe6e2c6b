package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scopa/internal/agent"
	"github.com/dotcommander/scopa/internal/proto"
)

type stubAgent struct {
	calls   int
	replies []string
	err     error
}

func (a *stubAgent) Respond(_ context.Context, history []proto.Message, input string) (agent.Reply, error) {
	a.calls++
	if a.err != nil {
		return agent.Reply{}, a.err
	}
	text := "ok"
	if len(a.replies) > 0 {
		text = a.replies[0]
		if len(a.replies) > 1 {
			a.replies = a.replies[1:]
		}
	}
	messages := append([]proto.Message(nil), history...)
	messages = append(messages,
		proto.Message{Role: proto.RoleUser, Content: input},
		proto.Message{Role: proto.RoleAssistant, Content: text},
	)
	return agent.Reply{Messages: messages, Text: text}, nil
}

func runSession(t *testing.T, input string, ag Agent) string {
	t.Helper()
	var out strings.Builder
	s := New(Options{
		In:    strings.NewReader(input),
		Out:   &out,
		Agent: ag,
	})
	require.NoError(t, s.Run(context.Background()))
	return out.String()
}

func TestSessionExitWords(t *testing.T) {
	for _, word := range []string{"quit", "exit", "bye", "QUIT", "Exit", "ByE", "  quit  "} {
		t.Run(word, func(t *testing.T) {
			ag := &stubAgent{}
			out := runSession(t, word+"\n", ag)
			require.Equal(t, 0, ag.calls)
			require.Equal(t, "You: Goodbye!\n", out)
		})
	}
}

func TestSessionTurn(t *testing.T) {
	ag := &stubAgent{replies: []string{"You have 3 active campaigns."}}
	out := runSession(t, "How many campaigns are active?\nquit\n", ag)
	require.Equal(t, 1, ag.calls)
	require.Equal(t, "You: \nAgent: You have 3 active campaigns.\n\nYou: Goodbye!\n", out)
}

func TestSessionRepeatedInput(t *testing.T) {
	ag := &stubAgent{}
	out := runSession(t, "list campaigns\nlist campaigns\nquit\n", ag)
	require.Equal(t, 2, ag.calls)
	require.Equal(t, 2, strings.Count(out, "Agent: ok"))
}

func TestSessionBlankInputReprompts(t *testing.T) {
	ag := &stubAgent{}
	out := runSession(t, "\n   \nquit\n", ag)
	require.Equal(t, 0, ag.calls)
	require.Equal(t, "You: You: You: Goodbye!\n", out)
}

func TestSessionErrorRecovery(t *testing.T) {
	ag := &stubAgent{err: errors.New("boom")}
	out := runSession(t, "hello\nquit\n", ag)
	require.Equal(t, 1, ag.calls)
	require.Equal(t, "You: \nError: boom\nPlease try again or type 'quit' to exit.\n\nYou: Goodbye!\n", out)
}

func TestSessionHistoryAccumulates(t *testing.T) {
	ag := &stubAgent{}
	var out strings.Builder
	s := New(Options{
		In:    strings.NewReader("first\nsecond\nquit\n"),
		Out:   &out,
		Agent: ag,
	})
	require.NoError(t, s.Run(context.Background()))
	require.Len(t, s.History(), 4)
	require.Equal(t, "first", s.History()[0].Content)
	require.Equal(t, "second", s.History()[2].Content)
}

func TestSessionSaveFn(t *testing.T) {
	ag := &stubAgent{}
	var saved int
	var out strings.Builder
	s := New(Options{
		In:    strings.NewReader("hello\nquit\n"),
		Out:   &out,
		Agent: ag,
		SaveFn: func(history []proto.Message, lastReply string) error {
			saved++
			require.Equal(t, "ok", lastReply)
			require.Len(t, history, 2)
			return nil
		},
	})
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 1, saved)
}

func TestSessionEOFSingleFarewell(t *testing.T) {
	ag := &stubAgent{}
	out := runSession(t, "", ag)
	require.Equal(t, 1, strings.Count(out, "Goodbye!"))
}

func TestSessionInterruptWhileWaitingForInput(t *testing.T) {
	ag := &stubAgent{}
	in, w := io.Pipe()
	defer w.Close() //nolint:errcheck

	var out strings.Builder
	s := New(Options{In: in, Out: &out, Agent: ag})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
	require.Equal(t, 0, ag.calls)
	require.Equal(t, 1, strings.Count(out.String(), "Goodbye!"))
	require.NotContains(t, out.String(), "Agent:")
}

func TestSessionCanceledTurn(t *testing.T) {
	ag := &stubAgent{err: context.Canceled}
	out := runSession(t, "hello\n", ag)
	require.Equal(t, 1, ag.calls)
	require.Equal(t, 1, strings.Count(out, "Goodbye!"))
	require.NotContains(t, out, "Please try again")
}

func TestSessionCopyWithoutReply(t *testing.T) {
	ag := &stubAgent{}
	out := runSession(t, "/copy\nquit\n", ag)
	require.Equal(t, 0, ag.calls)
	require.Contains(t, out, "Nothing to copy yet.")
}

func TestSessionRenderer(t *testing.T) {
	ag := &stubAgent{replies: []string{"plain"}}
	var out strings.Builder
	s := New(Options{
		In:     strings.NewReader("hi\nquit\n"),
		Out:    &out,
		Agent:  ag,
		Render: func(in string) string { return strings.ToUpper(in) },
	})
	require.NoError(t, s.Run(context.Background()))
	require.Contains(t, out.String(), "Agent: PLAIN")
}
