// Package session runs the interactive chat loop.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/dotcommander/scopa/internal/agent"
	"github.com/dotcommander/scopa/internal/proto"
)

const (
	prompt   = "You: "
	farewell = "Goodbye!"
)

// Agent produces an assistant reply for the given conversation history and
// user input.
type Agent interface {
	Respond(ctx context.Context, history []proto.Message, input string) (agent.Reply, error)
}

// Renderer formats assistant replies for display. The default is plain
// passthrough; the chat command installs a markdown renderer on TTYs.
type Renderer func(string) string

// Options configures a session.
type Options struct {
	In      io.Reader
	Out     io.Writer
	Agent   Agent
	Render  Renderer
	History []proto.Message
	SaveFn  func(history []proto.Message, lastReply string) error
	ErrorFn func(err error) string
}

// Session holds the state of one interactive chat.
type Session struct {
	in        *bufio.Scanner
	out       io.Writer
	agent     Agent
	render    Renderer
	history   []proto.Message
	lastReply string
	saveFn    func([]proto.Message, string) error
	errorFn   func(error) string
}

// New creates a session with the given options.
func New(opts Options) *Session {
	render := opts.Render
	if render == nil {
		render = func(s string) string { return s }
	}
	errorFn := opts.ErrorFn
	if errorFn == nil {
		errorFn = func(err error) string { return agent.Classify(err).Message() }
	}
	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Session{
		in:      scanner,
		out:     opts.Out,
		agent:   opts.Agent,
		render:  render,
		history: append([]proto.Message(nil), opts.History...),
		saveFn:  opts.SaveFn,
		errorFn: errorFn,
	}
}

// History returns the accumulated conversation so far.
func (s *Session) History() []proto.Message {
	return s.history
}

func isExitWord(in string) bool {
	switch strings.ToLower(in) {
	case "quit", "exit", "bye":
		return true
	}
	return false
}

// Run reads user input line by line until an exit keyword, EOF, or context
// cancellation. Each turn failure is reported and the loop continues; only
// cancellation and EOF terminate it.
func (s *Session) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for s.in.Scan() {
			select {
			case lines <- s.in.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- s.in.Err()
	}()

	for {
		fmt.Fprint(s.out, prompt)

		var line string
		var open bool
		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "\n%s\n", farewell)
			return nil
		case line, open = <-lines:
			if !open {
				fmt.Fprintf(s.out, "\n%s\n", farewell)
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if isExitWord(input) {
			fmt.Fprintf(s.out, "%s\n", farewell)
			return nil
		}
		if input == "/copy" {
			s.copyLastReply()
			continue
		}

		if err := s.turn(ctx, input); err != nil {
			if errors.Is(err, context.Canceled) || agent.Classify(err).Kind == agent.FaultCanceled {
				fmt.Fprintf(s.out, "\n%s\n", farewell)
				return nil
			}
			s.printTurnError(err)
		}
	}
}

func (s *Session) printTurnError(err error) {
	fmt.Fprintf(s.out, "\nError: %s\n", s.errorFn(err))
	fmt.Fprintf(s.out, "Please try again or type 'quit' to exit.\n\n")
}

func (s *Session) turn(ctx context.Context, input string) error {
	reply, err := s.agent.Respond(ctx, s.history, input)
	if err != nil {
		return err
	}

	s.history = reply.Messages
	s.lastReply = reply.Text
	fmt.Fprintf(s.out, "\nAgent: %s\n\n", strings.TrimRight(s.render(reply.Text), "\n"))

	if s.saveFn != nil {
		if err := s.saveFn(s.history, s.lastReply); err != nil {
			s.printTurnError(err)
		}
	}
	return nil
}

func (s *Session) copyLastReply() {
	if s.lastReply == "" {
		fmt.Fprintln(s.out, "Nothing to copy yet.")
		return
	}
	if err := clipboard.WriteAll(s.lastReply); err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", s.errorFn(err))
		return
	}
	fmt.Fprintln(s.out, "Copied the last reply to the clipboard.")
}
