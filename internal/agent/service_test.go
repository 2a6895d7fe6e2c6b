package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/proto"
)

func testService(steps []stepResult, call ToolCaller) *Service {
	i := 0
	return &Service{
		cfg: &config.Config{
			Settings: config.Settings{
				MaxToolSteps: 4,
				MCPTimeout:   config.Default().MCPTimeout,
			},
		},
		call: call,
		step: func(_ context.Context, _ []proto.Message) (stepResult, error) {
			if i >= len(steps) {
				return stepResult{}, errors.New("no steps left")
			}
			res := steps[i]
			i++
			return res, nil
		},
	}
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("plain answer", func(t *testing.T) {
		svc := testService([]stepResult{
			{text: "You have 3 active campaigns."},
		}, nil)

		reply, err := svc.Respond(ctx, nil, "How many campaigns are active?")
		require.NoError(t, err)
		require.Equal(t, "You have 3 active campaigns.", reply.Text)
		require.Len(t, reply.Messages, 2)
		require.Equal(t, proto.RoleUser, reply.Messages[0].Role)
		require.Equal(t, proto.RoleAssistant, reply.Messages[1].Role)
	})

	t.Run("keeps history", func(t *testing.T) {
		svc := testService([]stepResult{
			{text: "It is paused."},
		}, nil)

		history := []proto.Message{
			{Role: proto.RoleUser, Content: "list my campaigns"},
			{Role: proto.RoleAssistant, Content: "Summer Sale, Q4 Push."},
		}
		reply, err := svc.Respond(ctx, history, "what about the first one?")
		require.NoError(t, err)
		require.Len(t, reply.Messages, 4)
		require.Equal(t, "list my campaigns", reply.Messages[0].Content)
	})

	t.Run("tool round trip", func(t *testing.T) {
		var calledName string
		var calledArgs []byte
		call := func(_ context.Context, name string, args []byte) (string, error) {
			calledName = name
			calledArgs = args
			return `{"campaigns": 3}`, nil
		}

		svc := testService([]stepResult{
			{calls: []proto.ToolCall{{
				ID: "call_1",
				Function: proto.Function{
					Name:      "scope3_list_campaigns",
					Arguments: []byte(`{"status":"active"}`),
				},
			}}},
			{text: "You have 3 active campaigns."},
		}, call)

		reply, err := svc.Respond(ctx, nil, "How many campaigns are active?")
		require.NoError(t, err)
		require.Equal(t, "scope3_list_campaigns", calledName)
		require.JSONEq(t, `{"status":"active"}`, string(calledArgs))
		require.Equal(t, "You have 3 active campaigns.", reply.Text)

		// user, assistant(tool call), tool result, assistant answer
		require.Len(t, reply.Messages, 4)
		require.Equal(t, proto.RoleTool, reply.Messages[2].Role)
		require.Equal(t, `{"campaigns": 3}`, reply.Messages[2].Content)
		require.False(t, reply.Messages[2].ToolCalls[0].IsError)
	})

	t.Run("tool failure feeds back", func(t *testing.T) {
		call := func(_ context.Context, _ string, _ []byte) (string, error) {
			return "", errors.New("campaign not found")
		}

		svc := testService([]stepResult{
			{calls: []proto.ToolCall{{
				ID:       "call_1",
				Function: proto.Function{Name: "scope3_get_campaign"},
			}}},
			{text: "I could not find that campaign."},
		}, call)

		reply, err := svc.Respond(ctx, nil, "show campaign x")
		require.NoError(t, err)
		require.Equal(t, "I could not find that campaign.", reply.Text)
		require.True(t, reply.Messages[2].ToolCalls[0].IsError)
		require.Equal(t, "campaign not found", reply.Messages[2].Content)
	})

	t.Run("step budget", func(t *testing.T) {
		loop := stepResult{calls: []proto.ToolCall{{
			ID:       "call_1",
			Function: proto.Function{Name: "scope3_list_campaigns"},
		}}}
		call := func(_ context.Context, _ string, _ []byte) (string, error) {
			return "{}", nil
		}

		svc := testService([]stepResult{loop, loop, loop, loop, loop}, call)

		_, err := svc.Respond(ctx, nil, "loop forever")
		require.Error(t, err)
		require.ErrorContains(t, err, "did not produce a final answer")
	})

	t.Run("step error propagates", func(t *testing.T) {
		svc := testService(nil, nil)
		_, err := svc.Respond(ctx, nil, "hello")
		require.Error(t, err)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FaultKind
	}{
		{"canceled", context.Canceled, FaultCanceled},
		{"wrapped canceled", fmt.Errorf("turn: %w", context.Canceled), FaultCanceled},
		{"deadline", context.DeadlineExceeded, FaultNetwork},
		{"json syntax", &json.SyntaxError{}, FaultMalformed},
		{"json type", &json.UnmarshalTypeError{}, FaultMalformed},
		{"plain", errors.New("boom"), FaultUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}
}

func TestFaultMessage(t *testing.T) {
	f := Classify(errors.New("boom"))
	require.Equal(t, "boom", f.Message())

	f = Classify(context.Canceled)
	require.Equal(t, "Canceled.", f.Message())
}
