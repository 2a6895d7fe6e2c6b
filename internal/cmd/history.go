package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	timeago "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dotcommander/scopa/internal/config"
	"github.com/dotcommander/scopa/internal/errs"
	"github.com/dotcommander/scopa/internal/present"
	"github.com/dotcommander/scopa/internal/proto"
	"github.com/dotcommander/scopa/internal/storage"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved sessions",
	}

	historyCmd.AddCommand(newHistoryListCmd(rt))
	historyCmd.AddCommand(newHistoryShowCmd(rt))
	historyCmd.AddCommand(newHistoryDeleteCmd(rt))
	historyCmd.AddCommand(newHistoryPruneCmd(rt))

	return historyCmd
}

func newHistoryListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return listSessions(&rt.cfg, rt.cfg.Raw)
		},
	}
}

func newHistoryShowCmd(rt *runtime) *cobra.Command {
	var last bool
	showCmd := &cobra.Command{
		Use:   "show [id-or-title]",
		Short: "Show a saved session transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()
			in := ""
			if len(args) == 1 && !last {
				in = args[0]
			}
			return showSession(&rt.cfg, in)
		},
	}
	showCmd.Flags().BoolVarP(&last, "last", "S", false, "Show the last saved session")
	return showCmd
}

func newHistoryDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id-or-title> [more...]",
		Short: "Delete saved sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return deleteSessions(&rt.cfg, args)
		},
	}
}

func newHistoryPruneCmd(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			if olderThan == 0 {
				return errs.Wrap(errs.UserErrorf("missing --older-than"), "Could not delete old sessions.")
			}
			return deleteSessionsOlderThan(&rt.cfg, olderThan)
		},
	}
	pruneCmd.Flags().Var(newDurationFlag(olderThan, &olderThan), "older-than", "Duration to prune; e.g. 24h, 7d")
	return pruneCmd
}

func listSessions(cfg *config.Config, raw bool) error {
	store, err := openSessionStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open session store.")
	}
	defer store.Close() //nolint:errcheck

	sessions := store.DB.List()
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "No sessions found.")
		return nil
	}

	if present.IsInputTTY() && present.IsOutputTTY() && !raw {
		selectFromList(sessions)
		return nil
	}
	printList(sessions)
	return nil
}

func showSession(cfg *config.Config, in string) error {
	store, err := openSessionStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open session store.")
	}
	defer store.Close() //nolint:errcheck

	found, err := findReadSession(store.DB, in, false)
	if err != nil {
		return errs.Wrap(err, "There was an error loading the session.")
	}

	messages, err := store.Transcripts.Read(found.ID)
	if err != nil {
		return errs.Wrap(err, "There was an error loading the session.")
	}

	out := proto.Conversation(messages).String()
	if present.IsOutputTTY() && !cfg.Raw {
		formatted, err := present.RenderMarkdownForTTY(out, cfg.WordWrap)
		if err == nil {
			out = formatted
		}
	}
	fmt.Print(out)
	return nil
}

func deleteSessions(cfg *config.Config, targets []string) error {
	store, err := openSessionStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Couldn't delete session.")
	}
	defer store.Close() //nolint:errcheck

	for _, del := range targets {
		sess, err := store.DB.Find(del)
		if err != nil {
			return errs.Wrap(err, "Couldn't find session to delete.")
		}
		if err := deleteSessionByID(cfg, store, sess.ID); err != nil {
			return err
		}
	}
	return nil
}

func deleteSessionsOlderThan(cfg *config.Config, olderThan time.Duration) error {
	store, err := openSessionStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, "Could not open session store.")
	}
	defer store.Close() //nolint:errcheck

	sessions := store.DB.ListOlderThan(olderThan)
	if len(sessions) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(os.Stderr, "No sessions found.")
		}
		return nil
	}

	if !cfg.Quiet {
		printList(sessions)

		if !present.IsOutputTTY() || !present.IsInputTTY() {
			fmt.Fprintln(os.Stderr)
			//nolint:wrapcheck // user-facing guidance error
			return errs.UserErrorf(
				"To delete the sessions above, run: %s",
				strings.Join(append(os.Args, "--quiet"), " "),
			)
		}
		var confirm bool
		if err := huh.Run(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete sessions older than %s?", olderThan)).
				Description(fmt.Sprintf("This will delete all the %d sessions listed above.", len(sessions))).
				Value(&confirm),
		); err != nil {
			return errs.Wrap(err, "Couldn't delete old sessions.")
		}
		if !confirm {
			//nolint:wrapcheck // user-facing abort
			return errs.UserErrorf("Aborted by user")
		}
	}

	for _, sess := range sessions {
		if err := deleteSessionByID(cfg, store, sess.ID); err != nil {
			return err
		}
	}
	return nil
}

func makeOptions(sessions []storage.Session) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(sessions))
	for _, sess := range sessions {
		timea := present.StdoutStyles().Timeago.Render(timeago.Of(sess.UpdatedAt))
		left := present.StdoutStyles().SHA1.Render(sess.ID[:storage.SHA1Short])
		right := present.StdoutStyles().SessionList.Render(sess.Title, timea)
		if sess.Model != nil {
			right += present.StdoutStyles().Comment.Render(*sess.Model)
		}
		opts = append(opts, huh.NewOption(left+" "+right, sess.ID))
	}
	return opts
}

func selectFromList(sessions []storage.Session) {
	var selected string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sessions").
				Value(&selected).
				Options(makeOptions(sessions)...),
		),
	).Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		return
	}

	_ = clipboard.WriteAll(selected)
	termenv.Copy(selected)
	present.PrintConfirmation("COPIED", selected)

	fmt.Println(present.StdoutStyles().Comment.Render("You can use this session ID with the following commands:"))
	suggestions := []string{
		"scopa history show " + selected,
		"scopa --continue " + selected,
		"scopa history delete " + selected,
	}
	for _, s := range suggestions {
		fmt.Printf("  %s\n", present.StdoutStyles().InlineCode.Render(s))
	}
}

func printList(sessions []storage.Session) {
	for _, sess := range sessions {
		_, _ = fmt.Fprintf(
			os.Stdout,
			"%s\t%s\t%s\n",
			present.StdoutStyles().SHA1.Render(sess.ID[:storage.SHA1Short]),
			sess.Title,
			present.StdoutStyles().Timeago.Render(timeago.Of(sess.UpdatedAt)),
		)
	}
}
