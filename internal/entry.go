// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/starford/vellum/internal/browser"
	"github.com/starford/vellum/internal/codec"
	"github.com/starford/vellum/internal/history"
	"github.com/starford/vellum/internal/journal"
	"github.com/starford/vellum/internal/keys"
	"github.com/starford/vellum/internal/salt"
	"github.com/starford/vellum/internal/storage"
	"github.com/starford/vellum/internal/terminal"
	"github.com/starford/vellum/internal/watch"
)

// env is an opened journal and everything that must be released with it.
type env struct {
	cfg     *Config
	logger  *slog.Logger
	store   *storage.FS
	svc     *journal.Service
	history *history.DB
	closers []func() error
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

// Run opens the journal and starts the interactive list.
func Run(ctx context.Context, opts ...Option) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	app := newApplication(opts)
	tty := terminal.NewTTY(os.Stdin, os.Stdout)
	if !tty.IsTerminal() {
		return errors.New("interactive mode needs a terminal; use cat or new instead")
	}

	e, err := app.open(true, true)
	if err != nil {
		return err
	}
	defer e.Close()

	deps := browser.Deps{
		Input:    tty,
		Journal:  e.svc,
		Out:      os.Stdout,
		Interval: e.cfg.App.PollInterval,
		Logger:   e.logger,
	}
	if e.history != nil {
		deps.History = e.history
	}
	if e.cfg.Journal.Watch {
		w, err := watch.New(e.store.Root(), storage.IsReserved, e.logger)
		if err != nil {
			e.logger.Warn("watcher disabled", slog.String("error", err.Error()))
		} else {
			defer w.Close()
			deps.Changes = w
		}
	}

	session := terminal.NewSession(tty, e.logger)
	if err := session.Enter(); err != nil {
		return fmt.Errorf("enter interactive mode: %w", err)
	}
	defer session.Close()
	deps.Session = session

	e.logger.Debug("session started", slog.String("journal", e.store.Root()))
	if err := browser.Run(ctx, deps); err != nil {
		return err
	}
	e.logger.Debug("session ended")
	return nil
}

// Create adds an empty entry to the journal and opens it in the editor.
func Create(ctx context.Context, name string, opts ...Option) error {
	e, err := newApplication(opts).open(true, true)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.svc.Create(name); err != nil {
		return err
	}
	return e.svc.Edit(ctx, name, journal.Direct{})
}

// Cat writes the plaintext of one entry to the configured output.
func Cat(_ context.Context, name string, opts ...Option) error {
	app := newApplication(opts)
	e, err := app.open(true, false)
	if err != nil {
		return err
	}
	defer e.Close()
	return e.svc.Decrypt(name, app.stdout)
}

// PrintHistory lists the latest edit cycles of the journal. It needs no
// passphrase: the history holds no plaintext.
func PrintHistory(ctx context.Context, limit int, opts ...Option) error {
	app := newApplication(opts)
	e, err := app.open(false, false)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.history == nil {
		return errors.New("history is disabled")
	}

	edits, err := e.history.Recent(ctx, e.store.Root(), limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(app.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tENTRY\tBYTES\tDURATION\tEDITOR")
	for _, ed := range edits {
		status := "ok"
		if ed.EditorErr != "" {
			status = ed.EditorErr
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			ed.FinishedAt.Format(time.DateTime), ed.Entry, ed.PlainBytes,
			ed.FinishedAt.Sub(ed.StartedAt).Round(time.Second), status)
	}
	return tw.Flush()
}

// open validates the configuration and opens the journal directory. With
// withKey it derives the key and builds the journal service; withEditor
// additionally requires an editor command.
func (a *application) open(withKey, withEditor bool) (_ *env, err error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	logger, closeLog, err := newLogger(cfg.App)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	e := &env{cfg: cfg, logger: logger, closers: []func() error{closeLog}}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	var editor *journal.ExecEditor
	if withEditor {
		if editor, err = journal.NewExecEditor(cfg.Journal.Editor); err != nil {
			return nil, err
		}
	}

	if cfg.Journal.Path == "" {
		return nil, errors.New("journal directory is required")
	}
	if e.store, err = storage.NewFS(cfg.Journal.Path); err != nil {
		return nil, fmt.Errorf("journal directory %s: %w", cfg.Journal.Path, err)
	}

	logger.Debug("Configuration loaded",
		slog.String("journal", e.store.Root()),
		slog.Bool("history", cfg.History.Enabled),
		slog.Bool("watch", cfg.Journal.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		if e.history, err = history.Open(cfg.History.Path); err != nil {
			return nil, err
		}
		e.closers = append(e.closers, e.history.Close)
	}

	if !withKey {
		return e, nil
	}

	s, err := salt.LoadOrCreate(e.store.Root(), logger)
	if err != nil {
		return nil, err
	}
	pass, err := a.passphrase()
	if err != nil {
		return nil, err
	}
	key := keys.Derive(pass, s, a.keyParams)
	e.closers = append(e.closers, func() error { key.Destroy(); return nil })

	block, err := key.Cipher()
	if err != nil {
		return nil, err
	}
	c, err := codec.New(block)
	if err != nil {
		return nil, err
	}

	svcOpts := []journal.Option{journal.WithRemoveScratch(cfg.Journal.RemoveScratch)}
	if e.history != nil {
		svcOpts = append(svcOpts, journal.WithHistory(e.history))
	}
	var ed journal.Editor
	if editor != nil {
		ed = editor
	}
	e.svc = journal.NewService(e.store, c, ed, logger, svcOpts...)
	return e, nil
}

// newLogger builds the text logger on stderr, or a JSON logger appending to
// cfg.LogFile.
func newLogger(cfg ApplicationConfig) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), f.Close, nil
}
