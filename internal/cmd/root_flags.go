package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/present"
	"github.com/dotcommander/scopa/internal/storage"
)

var helpText = map[string]string{
	"model":          "Claude model to chat with",
	"max-tokens":     "Maximum number of tokens per reply",
	"temp":           "Sampling temperature",
	"word-wrap":      "Wrap formatted output at width",
	"http-proxy":     "HTTP proxy for API requests",
	"raw":            "Print raw replies without formatting",
	"quiet":          "Only print replies and errors",
	"no-save":        "Do not save the session to history",
	"max-tool-steps": "Maximum chained tool calls per turn",
	"mcp-timeout":    "Timeout for MCP server startup and discovery",
	"mcp-disable":    "Disable specific MCP servers; repeatable",
	"continue":       "Continue from the session with the given ID or title",
	"continue-last":  "Continue from the last saved session",
	"title":          "Save the session with this title",
	"help":           "Show help and exit",
	"version":        "Show version and exit",
}

func initRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, present.StdoutStyles().FlagDesc.Render(helpText["model"]))
	flags.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, present.StdoutStyles().FlagDesc.Render(helpText["max-tokens"]))
	flags.Float64Var(&cfg.Temperature, "temp", cfg.Temperature, present.StdoutStyles().FlagDesc.Render(helpText["temp"]))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, present.StdoutStyles().FlagDesc.Render(helpText["word-wrap"]))
	flags.StringVarP(&cfg.HTTPProxy, "http-proxy", "x", cfg.HTTPProxy, present.StdoutStyles().FlagDesc.Render(helpText["http-proxy"]))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, present.StdoutStyles().FlagDesc.Render(helpText["raw"]))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, present.StdoutStyles().FlagDesc.Render(helpText["quiet"]))
	flags.BoolVar(&cfg.NoSave, "no-save", cfg.NoSave, present.StdoutStyles().FlagDesc.Render(helpText["no-save"]))
	flags.IntVar(&cfg.MaxToolSteps, "max-tool-steps", cfg.MaxToolSteps, present.StdoutStyles().FlagDesc.Render(helpText["max-tool-steps"]))
	flags.Var(newDurationFlag(cfg.MCPTimeout, &cfg.MCPTimeout), "mcp-timeout", present.StdoutStyles().FlagDesc.Render(helpText["mcp-timeout"]))
	flags.StringArrayVar(&cfg.MCPDisable, "mcp-disable", nil, present.StdoutStyles().FlagDesc.Render(helpText["mcp-disable"]))
	flags.StringVarP(&cfg.Continue, "continue", "c", "", present.StdoutStyles().FlagDesc.Render(helpText["continue"]))
	flags.BoolVarP(&cfg.ContinueLast, "continue-last", "C", false, present.StdoutStyles().FlagDesc.Render(helpText["continue-last"]))
	flags.StringVarP(&cfg.Title, "title", "t", cfg.Title, present.StdoutStyles().FlagDesc.Render(helpText["title"]))
	flags.BoolVarP(&cfg.ShowHelp, "help", "h", false, present.StdoutStyles().FlagDesc.Render(helpText["help"]))
	flags.BoolVarP(&cfg.Version, "version", "v", false, present.StdoutStyles().FlagDesc.Render(helpText["version"]))
	flags.SortFlags = false

	flags.BoolVar(&memprofile, "memprofile", false, "Write memory profiles to CWD")
	_ = flags.MarkHidden("memprofile")

	// Shell completions for continue IDs. Open DB lazily.
	_ = cmd.RegisterFlagCompletionFunc("continue", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if cfg.CachePath == "" {
			return nil, cobra.ShellCompDirectiveDefault
		}
		db, err := storage.Open(filepath.Join(cfg.CachePath, "sessions"))
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}
		defer db.Close() //nolint:errcheck
		return db.Completions(toComplete), cobra.ShellCompDirectiveDefault
	})

	cmd.MarkFlagsMutuallyExclusive("continue", "continue-last")
}
