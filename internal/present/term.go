package present

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// TTY checks and renderers are memoized so the environment is inspected at
// most once, and only after flag parsing had a chance to run.
var (
	// IsInputTTY reports whether stdin is a TTY.
	IsInputTTY = sync.OnceValue(func() bool {
		return isatty.IsTerminal(os.Stdin.Fd())
	})

	// IsOutputTTY reports whether stdout is a TTY.
	IsOutputTTY = sync.OnceValue(func() bool {
		return isatty.IsTerminal(os.Stdout.Fd())
	})

	// StdoutRenderer returns a lipgloss renderer bound to stdout.
	StdoutRenderer = sync.OnceValue(lipgloss.DefaultRenderer)

	// StderrRenderer returns a lipgloss renderer bound to stderr.
	StderrRenderer = sync.OnceValue(func() *lipgloss.Renderer {
		return lipgloss.NewRenderer(os.Stderr, termenv.WithColorCache(true))
	})

	// StdoutStyles returns shared styles bound to stdout.
	StdoutStyles = sync.OnceValue(func() Styles {
		return MakeStyles(StdoutRenderer())
	})

	// StderrStyles returns shared styles bound to stderr.
	StderrStyles = sync.OnceValue(func() Styles {
		return MakeStyles(StderrRenderer())
	})
)
