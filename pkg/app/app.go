// Package app wires together the core components — Config, Log, Container
// Engine, Permission Set, Reporter, Sandbox, Runner — into the single
// object main.go drives, mirroring the teacher's own App bootstrap.
package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/srunlabs/srun/pkg/asset"
	"github.com/srunlabs/srun/pkg/config"
	"github.com/srunlabs/srun/pkg/engine"
	"github.com/srunlabs/srun/pkg/i18n"
	"github.com/srunlabs/srun/pkg/log"
	"github.com/srunlabs/srun/pkg/permission"
	"github.com/srunlabs/srun/pkg/reporter"
	"github.com/srunlabs/srun/pkg/runner"
	"github.com/srunlabs/srun/pkg/sandbox"
	"github.com/srunlabs/srun/pkg/task"
)

// App struct
type App struct {
	closers []io.Closer

	Config      *config.AppConfig
	Log         *logrus.Entry
	Tr          i18n.TranslationSet
	Engine      *engine.Docker
	Permissions permission.Set
	Reporter    reporter.Reporter
	Sandbox     *sandbox.Sandbox
	Runner      *runner.Runner
}

// NewApp bootstraps a new application: it connects to the container
// engine, builds the Sandbox over it, and wires a Runner ready to drive a
// single task. perms has already been resolved from the CLI by
// permission.OptionsFromCLI (spec.md §4.1 — callers canonicalize paths).
func NewApp(cfg *config.AppConfig, perms permission.Set) (*App, error) {
	app := &App{
		closers:     []io.Closer{},
		Config:      cfg,
		Permissions: perms,
	}

	app.Log = log.NewLogger(cfg)
	app.Tr = i18n.NewTranslationSet(app.Log, "auto")

	eng, err := engine.NewDocker(app.Log)
	if err != nil {
		return app, err
	}
	app.Engine = eng
	app.closers = append(app.closers, eng)

	app.Reporter = reporter.NewText(app.Log)

	app.Sandbox = sandbox.New(eng, app.Log, sandbox.Options{
		StopTimeoutSeconds: cfg.UserConfig.Sandbox.StopTimeoutSeconds,
		NanoCPUs:           cfg.UserConfig.Sandbox.NanoCPUs,
		MemoryBytes:        cfg.UserConfig.Sandbox.MemoryBytes,
		LogChunkLimit:      cfg.UserConfig.Sandbox.LogChunkLimit,
	})

	cacheDir := cfg.UserConfig.Asset.CacheDir
	if cacheDir == "" && cfg.CacheDir != "" {
		cacheDir = filepath.Join(cfg.CacheDir, "assets")
	}

	assetOpts := asset.Options{
		CacheDir:    cacheDir,
		Concurrency: cfg.UserConfig.Asset.Concurrency,
		CacheTTL:    cfg.UserConfig.Asset.CacheTTL,
		Log:         app.Log,
	}

	app.Runner = runner.New(app.Sandbox, app.Reporter, app.Permissions, assetOpts, app.Log)

	return app, nil
}

// Run drives t to completion through the Runner, unconditionally releasing
// the Runner's resources afterward (pkg/runner.Runner.Close's doc comment
// explains why this defer must be direct, not wrapped in a closure).
func (app *App) Run(ctx context.Context, t *task.Task) error {
	defer app.Runner.Close()
	return app.Runner.Run(ctx, t)
}

// Close closes any resources the App opened, such as the Container Engine
// client connection.
func (app *App) Close() error {
	for _, closer := range app.closers {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return nil
}

type errorMapping struct {
	originalError string
	newError      string
}

// KnownError takes an error and tells us whether it's an error that we
// know about where we can print a nicely formatted hint rather than a raw
// stack trace, the same role lazydocker's App.KnownError plays for its own
// Docker-socket error.
func (app *App) KnownError(err error) (string, bool) {
	errorMessage := err.Error()

	mappings := []errorMapping{
		{
			originalError: "Got permission denied while trying to connect to the Docker daemon socket",
			newError:      app.Tr.ConnectionFailed,
		},
		{
			originalError: "Cannot connect to the Docker daemon",
			newError:      app.Tr.ConnectionFailed,
		},
	}

	for _, mapping := range mappings {
		if strings.Contains(errorMessage, mapping.originalError) {
			return mapping.newError, true
		}
	}

	return "", false
}
