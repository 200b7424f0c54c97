package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"playground/config"
	"playground/internal/changes"
	"playground/internal/engine"
	"playground/internal/events"
	"playground/internal/export"
	"playground/internal/logging"
	"playground/internal/prompts"
	"playground/internal/threads"
	"playground/internal/vfs"
	"playground/llm"
	"playground/workspace"
)

// app is everything a command needs to run one orchestrator session.
type app struct {
	workspace string
	cfg       *config.Config
	logger    *zerolog.Logger
	bus       *events.EventBus
	orch      *engine.Orchestrator
	threads   threads.Store
	thread    *threads.Thread
}

// appOptions tweaks newApp per command.
type appOptions struct {
	// sandboxDir materializes generated files on disk; empty keeps them in
	// memory.
	sandboxDir string
	// withThreads opens the thread store.
	withThreads bool
}

// loadSettings detects the workspace and loads its configuration with the
// persistent flags applied.
func loadSettings() (string, *config.Config, error) {
	workspacePath, err := workspace.DetectWorkspace()
	if err != nil {
		return "", nil, fmt.Errorf("detect workspace: %w", err)
	}
	cfg, err := config.LoadConfig(workspacePath)
	if err != nil {
		return "", nil, fmt.Errorf("load config: %w", err)
	}
	if modelFlag != "" {
		if err := cfg.Set("model", modelFlag); err != nil {
			return "", nil, err
		}
	}
	return workspacePath, cfg, nil
}

func newLogger(cfg *config.Config) *zerolog.Logger {
	l := logging.New(logging.Options{Level: cfg.LogLevel, Verbose: verbose})
	return &l
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	workspacePath, cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := workspace.EnsureStateDir(workspacePath); err != nil {
		return nil, fmt.Errorf("create %s: %w", workspace.StateDirName, err)
	}
	logger := newLogger(cfg)

	adapter, err := llm.CreateAdapter(ctx, cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Timeout())
	if err != nil {
		return nil, err
	}

	var sandbox vfs.Sandbox = vfs.NewMemorySandbox()
	if opts.sandboxDir != "" {
		disk, err := vfs.NewDiskSandbox(opts.sandboxDir)
		if err != nil {
			return nil, err
		}
		sandbox = disk
	}

	bus := events.NewEventBus()
	orch := engine.New(adapter, vfs.NewStore(), sandbox).
		WithLogger(logger).
		WithEventBus(bus).
		WithRegistry(prompts.NewRegistry(cfg.PromptOverrides())).
		WithChangeLog(changes.NewLog()).
		WithMaxTokens(cfg.MaxTokens).
		WithStripFences(cfg.StripFences)

	a := &app{
		workspace: workspacePath,
		cfg:       cfg,
		logger:    logger,
		bus:       bus,
		orch:      orch,
	}
	if opts.withThreads {
		store, err := threads.Open(ctx, cfg.ThreadStore, workspace.ThreadsDir(workspacePath), cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.threads = store
	}
	logger.Debug().Str("workspace", workspacePath).Str("model", cfg.Model).Msg("session ready")
	return a, nil
}

// resume restores a saved thread: id when given, otherwise the newest one
// when latest is set.
func (a *app) resume(ctx context.Context, id string, latest bool) error {
	if a.threads == nil || (id == "" && !latest) {
		return nil
	}
	if id == "" {
		list, err := a.threads.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		id = list[0].ID
	}
	t, err := a.threads.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := a.orch.RestoreConversation(ctx, t.Messages); err != nil {
		return err
	}
	a.thread = &t
	a.logger.Info().Str("thread", t.ID).Int("messages", len(t.Messages)).Msg("thread restored")
	return nil
}

// save persists the conversation, creating the thread on first use.
func (a *app) save(ctx context.Context) error {
	if a.threads == nil {
		return nil
	}
	msgs := a.orch.Messages()
	if len(msgs) == 0 {
		return nil
	}
	if a.thread == nil {
		t := threads.New(msgs)
		a.thread = &t
	} else {
		a.thread.Update(msgs)
	}
	return a.threads.Save(ctx, *a.thread)
}

// exporter resolves an export target: "s3" uploads with the configured
// bucket, anything else is a directory (relative to the workspace), and
// empty means the configured export_dir.
func (a *app) exporter(target string) (export.Exporter, error) {
	target = strings.TrimSpace(target)
	if target == "s3" {
		return export.NewS3Exporter(export.S3Config{
			Endpoint:  a.cfg.S3Endpoint,
			Region:    a.cfg.S3Region,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
			Bucket:    a.cfg.S3Bucket,
			Prefix:    a.cfg.S3Prefix,
			UseSSL:    a.cfg.S3UseSSL,
		}, a.logger)
	}
	if target == "" {
		target = a.cfg.ExportDir
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(a.workspace, target)
	}
	return export.NewDirExporter(target, a.logger)
}

func (a *app) export(ctx context.Context, target string) (int, error) {
	exp, err := a.exporter(target)
	if err != nil {
		return 0, err
	}
	return exp.Export(ctx, a.orch.Store().Files())
}

func (a *app) Close() error {
	if a.threads == nil {
		return nil
	}
	return a.threads.Close()
}

// printChanges writes the change log entries recorded since n.
func printChanges(out io.Writer, a *app, n int) {
	for _, c := range a.orch.Changes().Since(n) {
		fmt.Fprintln(out, c.Summary())
	}
}

// turnError turns a failed generation into a readable error while keeping
// cancellation quiet.
func turnError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
