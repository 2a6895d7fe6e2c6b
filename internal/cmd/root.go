package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	glamour "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dotcommander/scopa/internal/agent"
	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
	"github.com/dotcommander/scopa/internal/mcp"
	"github.com/dotcommander/scopa/internal/present"
	"github.com/dotcommander/scopa/internal/proto"
	"github.com/dotcommander/scopa/internal/session"
)

type runtime struct {
	build  BuildInfo
	cfg    config.Config
	cfgErr error
}

// NewRootCmd constructs the Cobra root command.
func NewRootCmd(build BuildInfo, cfg config.Config, cfgErr error) *cobra.Command {
	// XXX: unset error styles in Glamour dark and light styles.
	glamour.DarkStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)
	glamour.LightStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)

	rt := &runtime{build: normalizeBuildInfo(build), cfg: cfg, cfgErr: cfgErr}

	rootCmd := &cobra.Command{
		Use:           "scopa",
		Short:         "Chat with your Scope3 campaigns from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       randomExample(),
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfg.ShowHelp {
				drainStdin()
				if err := cmd.Usage(); err != nil {
					return fmt.Errorf("usage: %w", err)
				}
				return nil
			}
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return rt.runChat(ctx)
		},
	}

	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Version = rt.build.Version
	rootCmd.SetVersionTemplate(versionTemplate(rt.build))

	initRootFlags(rootCmd, &rt.cfg)

	// Commands.
	rootCmd.AddCommand(newHistoryCmd(rt))
	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newToolsCmd(rt))
	rootCmd.AddCommand(newManCmd(rootCmd))

	// Enable completion now that we have subcommands.
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

func (rt *runtime) runChat(ctx context.Context) error {
	// Both credentials are checked before any connection is attempted, so a
	// missing key never costs a network round trip. This is a diagnostic,
	// not a failure.
	keys, err := rt.cfg.ResolveKeys(ctx)
	if err != nil {
		var missing config.MissingKeyError
		if errors.As(err, &missing) {
			fmt.Printf("Error: %s\n", missing.Error())
			fmt.Println(missing.Remediation())
			return nil
		}
		return err
	}
	rt.cfg.SeedScope3Auth(keys.Scope3)

	fmt.Println("Connecting to Scope3 Campaign API...")

	mcpSvc := mcp.New(&rt.cfg)
	connectCtx, cancel := context.WithTimeout(ctx, rt.cfg.MCPTimeout)
	err = mcpSvc.Connect(connectCtx)
	cancel()
	if err != nil {
		return errs.Wrap(err, "Could not connect to the Scope3 Campaign API.")
	}
	defer mcpSvc.Close() //nolint:errcheck

	toolsCtx, cancel := context.WithTimeout(ctx, rt.cfg.MCPTimeout)
	tools, err := mcpSvc.Tools(toolsCtx)
	cancel()
	if err != nil {
		return errs.Wrap(err, "Could not discover the campaign tools.")
	}

	count := 0
	for _, list := range tools {
		count += len(list)
	}
	fmt.Printf("Successfully loaded %d tools\n", count)

	var history []proto.Message
	saveFn := func(msgs []proto.Message, _ string) error { return nil }

	if !rt.cfg.NoSave {
		store, err := openSessionStore(rt.cfg.CachePath)
		if err != nil {
			return errs.Wrap(err, "Could not open session store.")
		}
		defer store.Close() //nolint:errcheck

		pl, err := planSession(&rt.cfg, store.DB)
		if err != nil {
			return err
		}
		rt.cfg.Model = pl.Model

		if pl.ReadID != "" {
			history, err = store.Transcripts.Read(pl.ReadID)
			if err != nil {
				return errs.Wrap(err, "There was a problem reading the session from history.")
			}
		}

		saveFn = func(msgs []proto.Message, _ string) error {
			return saveSession(&rt.cfg, store, pl.WriteID, pl.Title, msgs)
		}
	}

	// The agent is built after session planning so a continued session keeps
	// the model it was started with.
	agentSvc, err := agent.New(&rt.cfg, keys, tools, mcpSvc.CallTool)
	if err != nil {
		return err
	}

	rt.printWelcome()

	s := session.New(session.Options{
		In:      os.Stdin,
		Out:     os.Stdout,
		Agent:   agentSvc,
		Render:  rt.renderer(),
		History: history,
		SaveFn:  saveFn,
	})

	return s.Run(ctx)
}

// renderer returns the reply formatter. Markdown formatting only applies on
// a TTY; piped output stays raw so it remains greppable.
func (rt *runtime) renderer() session.Renderer {
	if !present.IsOutputTTY() || rt.cfg.Raw {
		return nil
	}
	wrap := rt.cfg.WordWrap
	return func(in string) string {
		out, err := present.RenderMarkdownForTTY(in, wrap)
		if err != nil {
			return in
		}
		return out
	}
}

func (rt *runtime) printWelcome() {
	if rt.cfg.Quiet || !present.IsOutputTTY() {
		return
	}
	name := "scopa"
	if present.StdoutRenderer().ColorProfile() == termenv.TrueColor {
		name = present.MakeGradientText(present.StdoutStyles().AppName, name)
	}
	fmt.Printf(
		"%s %s\n",
		name,
		present.StdoutStyles().Comment.Render("Type 'quit', 'exit', or 'bye' to leave."),
	)
}
