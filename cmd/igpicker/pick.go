package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igpicker/pkg/auth"
	"igpicker/pkg/config"
	"igpicker/pkg/export"
	"igpicker/pkg/logger"
	"igpicker/pkg/picker"
	"igpicker/pkg/selection"
	"igpicker/pkg/storage"
	"igpicker/pkg/ui"
	"igpicker/pkg/ui/tui"
)

var (
	pickToken     string
	pickFile      string
	pickLimit     int
	pickFormat    string
	pickOutput    string
	pickOverwrite bool
	pickNotify    bool
	pickNoTUI     bool
	pickSelectAll bool
	pickTimeout   time.Duration
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick [usernames...]",
	Short: "Fetch recent posts, pick photos and export them",
	Long: `Fetch up to N recent posts for each username, pick the photos to keep
and export one row per account.

Usernames come from the arguments, from --file, or from stdin when the only
argument is '-'. Pasted profile URLs and leading '@' are accepted.

Interactive keys:
  up/down, j/k   move            tab/shift+tab   next/previous account
  space, x       toggle photo    a               toggle all photos of account
  enter, e       export          q, esc          quit without exporting`,
	Example: `  # Pick from two accounts
  igpicker pick natgeo nasa

  # Read a list, export as Excel without the interactive picker
  igpicker pick --file accounts.txt --format xlsx --no-tui --select-all

  # Pipe usernames in
  cat accounts.txt | igpicker pick -`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)

	pickCmd.Flags().StringVarP(&pickToken, "token", "t", "", "Apify API token (default: config, env, stored credential)")
	pickCmd.Flags().StringVarP(&pickFile, "file", "f", "", "read usernames from a file, one per line ('-' for stdin)")
	pickCmd.Flags().IntVarP(&pickLimit, "limit", "n", 0, "posts per account and photo columns (default from config: 5)")
	pickCmd.Flags().StringVar(&pickFormat, "format", "", "export format: csv or xlsx")
	pickCmd.Flags().StringVarP(&pickOutput, "output", "o", "", "output directory")
	pickCmd.Flags().BoolVar(&pickOverwrite, "overwrite", false, "overwrite an existing export file")
	pickCmd.Flags().BoolVar(&pickNotify, "notify", false, "send a desktop notification when done")
	pickCmd.Flags().BoolVar(&pickNoTUI, "no-tui", false, "skip the interactive picker and export straight away")
	pickCmd.Flags().BoolVar(&pickSelectAll, "select-all", false, "with --no-tui, select every fetched photo")
	pickCmd.Flags().DurationVar(&pickTimeout, "timeout", 0, "provider request timeout (default from config: 2m)")
}

func runPick(cmd *cobra.Command, args []string) error {
	usernames, err := readUsernames(args, pickFile, os.Stdin)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(map[string]interface{}{
		"token":     pickToken,
		"limit":     pickLimit,
		"timeout":   pickTimeout,
		"format":    pickFormat,
		"output":    pickOutput,
		"overwrite": pickOverwrite,
		"notify":    pickNotify,
	})
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}

	var stored tokenSource
	if manager, err := auth.NewManager(); err == nil {
		stored = manager
	} else {
		log.WithError(err).Debug("Credential store unavailable")
	}
	token, err := resolveToken(cfg.Provider.Token, stored, promptToken())
	if err != nil {
		auth.ShowQuickTokenGuide(os.Stdout)
		return err
	}

	notifier := ui.NewNotifier(cfg.Notifications)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !pickNoTUI && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))

	var session *selection.Session
	if interactive {
		var exported bool
		session, exported, err = pickInteractive(ctx, cfg, token, usernames)
		if err != nil {
			notifier.Failed("Fetch failed", err)
			return err
		}
		if !exported {
			ui.PrintWarning("Quit without exporting")
			return nil
		}
	} else {
		session, err = pickPlain(ctx, cfg, log, token, usernames)
		if err != nil {
			notifier.Failed("Fetch failed", err)
			return err
		}
	}

	ui.PrintSummary(session.Summary())
	if !session.HasRows() {
		ui.PrintWarning("No account returned posts; nothing to export")
		return nil
	}

	path, err := saveExport(cfg, format, session)
	if err != nil {
		notifier.Failed("Export failed", err)
		return err
	}

	rows := len(session.Rows())
	log.WithFields(map[string]interface{}{
		"path":    path,
		"rows":    rows,
		"session": session.ID,
	}).Info("Export written")
	ui.PrintSuccess(fmt.Sprintf("Exported %d rows to %s", rows, path))
	notifier.Exported(path, rows)
	return nil
}

// pickPlain fetches with line-based progress and no interactive selection
func pickPlain(ctx context.Context, cfg *config.Config, log logger.Logger, token string, usernames []string) (*selection.Session, error) {
	progress := ui.NewFetchProgress(quiet)
	p := picker.NewFromConfig(cfg, log, picker.WithObserver(progress))

	session, err := p.RunUsernames(ctx, token, usernames)
	if err != nil {
		if session == nil {
			return nil, err
		}
		ui.PrintWarning("Fetch interrupted, exporting what was fetched", err)
	}

	if pickSelectAll {
		for i := 0; i < session.Len(); i++ {
			if err := session.SelectAll(i, true); err != nil {
				return nil, err
			}
		}
	}
	return session, nil
}

// pickInteractive runs the fetch under the TUI and lets the user pick.
// Console logging is muted while the alternate screen is up; a configured
// log file still receives everything.
func pickInteractive(ctx context.Context, cfg *config.Config, token string, usernames []string) (*selection.Session, bool, error) {
	log, err := logger.NewWithWriter(&cfg.Logging, io.Discard)
	if err != nil {
		return nil, false, err
	}

	fetch := func(ctx context.Context, obs picker.Observer) (*selection.Session, error) {
		p := picker.NewFromConfig(cfg, log, picker.WithObserver(obs))
		return p.RunUsernames(ctx, token, usernames)
	}

	out, err := tui.New(fetch, len(usernames)).Run(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("terminal UI failed: %w", err)
	}
	if out.Session == nil {
		return nil, false, out.Err
	}
	return out.Session, out.Export, nil
}

// saveExport writes the session through the storage manager and returns the path
func saveExport(cfg *config.Config, format export.Format, session *selection.Session) (string, error) {
	store, err := storage.NewManagerFromConfig(cfg.Export)
	if err != nil {
		return "", err
	}
	return store.Save(export.FileName(cfg.Export.FileName, format), func(w io.Writer) error {
		return export.WriteSession(w, format, session)
	})
}
