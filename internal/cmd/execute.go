package cmd

import (
	"os"

	"github.com/dotcommander/scopa/internal/config"
)

// Execute builds the command tree and runs it, exiting non-zero on error.
func Execute(build BuildInfo, cfg config.Config, cfgErr error) {
	defer maybeWriteMemProfile()

	if err := NewRootCmd(build, cfg, cfgErr).Execute(); err != nil {
		handleError(err)
		os.Exit(1)
	}
}
