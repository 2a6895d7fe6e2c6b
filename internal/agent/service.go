package agent

import (
	"context"
	"slices"
	"strings"

	"charm.land/fantasy"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
	"github.com/dotcommander/scopa/internal/proto"
)

// ToolCaller executes a named tool with raw JSON arguments.
type ToolCaller func(ctx context.Context, name string, args []byte) (string, error)

// Service is the reasoning agent bound to one model and one tool set.
//
// It is built once at startup and reused for every turn; after construction
// it holds no mutable state, so turns may not overlap but the value itself
// never changes.
type Service struct {
	cfg   *config.Config
	tools []fantasy.Tool
	call  ToolCaller
	step  stepFunc
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	// Messages is the full conversation including the new user input, any
	// intermediate tool traffic, and the final assistant message.
	Messages []proto.Message
	// Text is the textual content of the last assistant message.
	Text string
}

type stepResult struct {
	text  string
	calls []proto.ToolCall
}

type stepFunc func(ctx context.Context, messages []proto.Message) (stepResult, error)

// New builds the agent from the resolved credentials and discovered tools.
func New(cfg *config.Config, keys config.Keys, tools map[string][]mcp.Tool, call ToolCaller) (*Service, error) {
	pc, err := providerConfigFor(cfg, keys)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(pc)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:   cfg,
		tools: fromMCPTools(tools),
		call:  call,
	}
	s.step = s.modelStep(provider)
	return s, nil
}

// Respond runs one turn: the user input is appended to history and the model
// is stepped until it stops asking for tools.
func (s *Service) Respond(ctx context.Context, history []proto.Message, input string) (Reply, error) {
	messages := slices.Clone(history)
	messages = append(messages, proto.Message{Role: proto.RoleUser, Content: input})

	for range s.cfg.MaxToolSteps {
		res, err := s.step(ctx, messages)
		if err != nil {
			return Reply{}, err
		}

		msg := proto.Message{
			Role:      proto.RoleAssistant,
			Content:   res.text,
			ToolCalls: res.calls,
		}
		if msg.Content != "" || len(msg.ToolCalls) > 0 {
			messages = append(messages, msg)
		}

		if len(res.calls) == 0 {
			return Reply{Messages: messages, Text: res.text}, nil
		}
		for _, call := range res.calls {
			messages = append(messages, s.invokeTool(ctx, call))
			if ctx.Err() != nil {
				return Reply{}, ctx.Err()
			}
		}
	}

	return Reply{}, errs.Error{
		Err:    errs.UserErrorf("gave up after %d tool rounds", s.cfg.MaxToolSteps),
		Reason: "The agent did not produce a final answer.",
	}
}

func (s *Service) invokeTool(ctx context.Context, call proto.ToolCall) proto.Message {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.MCPTimeout)
	defer cancel()

	result, err := s.call(callCtx, call.Function.Name, call.Function.Arguments)
	if err != nil {
		// Tool failures go back to the model as error results so it can
		// recover or explain; they do not abort the turn.
		return proto.Message{
			Role:      proto.RoleTool,
			Content:   err.Error(),
			ToolCalls: []proto.ToolCall{{ID: call.ID, Function: call.Function, IsError: true}},
		}
	}
	return proto.Message{
		Role:      proto.RoleTool,
		Content:   result,
		ToolCalls: []proto.ToolCall{{ID: call.ID, Function: call.Function}},
	}
}

// modelStep returns the production step implementation: one streamed model
// call, collected into text plus requested tool calls.
func (s *Service) modelStep(provider fantasy.Provider) stepFunc {
	return func(ctx context.Context, messages []proto.Message) (stepResult, error) {
		model, err := provider.LanguageModel(ctx, s.cfg.Model)
		if err != nil {
			return stepResult{}, errs.Wrap(err, "Could not load the language model.")
		}

		temperature := s.cfg.Temperature
		maxTokens := s.cfg.MaxTokens
		call := fantasy.Call{
			Prompt:          toFantasyPrompt(messages),
			MaxOutputTokens: &maxTokens,
			Temperature:     &temperature,
			Tools:           s.tools,
		}
		if len(s.tools) > 0 {
			choice := fantasy.ToolChoiceAuto
			call.ToolChoice = &choice
		}

		seq, err := model.Stream(ctx, call)
		if err != nil {
			return stepResult{}, err
		}

		var res stepResult
		var text strings.Builder
		seen := map[string]struct{}{}
		for part := range seq {
			switch part.Type {
			case fantasy.StreamPartTypeTextDelta:
				text.WriteString(part.Delta)
			case fantasy.StreamPartTypeToolCall:
				if part.ProviderExecuted {
					continue
				}
				if _, dup := seen[part.ID]; dup {
					continue
				}
				seen[part.ID] = struct{}{}
				res.calls = append(res.calls, proto.ToolCall{
					ID: part.ID,
					Function: proto.Function{
						Name:      part.ToolCallName,
						Arguments: []byte(part.ToolCallInput),
					},
				})
			case fantasy.StreamPartTypeError:
				if part.Error != nil {
					return stepResult{}, part.Error
				}
			default:
				// Reasoning, warnings, and bookkeeping parts are not
				// surfaced by the session.
			}
			if err := ctx.Err(); err != nil {
				return stepResult{}, err
			}
		}

		res.text = text.String()
		return res, nil
	}
}
