package cmd

import (
	"io"
	"os"

	"github.com/dotcommander/scopa/internal/present"
)

// drainStdin consumes any piped input so the shell does not feed it to the
// next command when scopa bails out early.
func drainStdin() {
	if present.IsInputTTY() {
		return
	}
	_, _ = io.Copy(io.Discard, os.Stdin)
}
