package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/waabox/autofixdeck/internal/apiclient"
	"github.com/waabox/autofixdeck/internal/backend"
	"github.com/waabox/autofixdeck/internal/config"
	"github.com/waabox/autofixdeck/internal/domain"
	"github.com/waabox/autofixdeck/internal/git"
	"github.com/waabox/autofixdeck/internal/polling"
)

// env is what every command needs: merged configuration, a logger and the backend adapter.
type env struct {
	configPath string
	cfg        config.Config
	logger     zerolog.Logger
	adapter    *backend.Adapter
	closeLog   func()
}

// newEnv loads the config file, applies flag overrides and builds the logger.
// The dashboard logs to a file because it owns the terminal.
func newEnv(cmd *cli.Command, dashboard bool) (*env, error) {
	path := cmd.String("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if v := cmd.String("api-url"); v != "" {
		cfg.API.URL = v
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("log-file"); v != "" {
		cfg.Log.File = v
	}

	logger, closeLog, err := newLogger(cfg, dashboard)
	if err != nil {
		return nil, err
	}

	client := apiclient.New(cfg.APIURLOrDefault(), apiclient.WithTimeout(cfg.TimeoutOrDefault()))
	return &env{
		configPath: path,
		cfg:        cfg,
		logger:     logger,
		adapter:    backend.NewAdapter(client),
		closeLog:   closeLog,
	}, nil
}

func newLogger(cfg config.Config, dashboard bool) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevelOrDefault())
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("parsing log level: %w", err)
	}
	if !dashboard {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		return logger, func() {}, nil
	}

	path := cfg.Log.File
	if path == "" {
		path = config.DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, func() { f.Close() }, nil
}

func (e *env) close() {
	e.closeLog()
}

// withLogger attaches the logger; everything below the command reads it with zerolog.Ctx.
func (e *env) withLogger(ctx context.Context) context.Context {
	return e.logger.WithContext(ctx)
}

// newController reads the backend polling config once. The defaults are used
// when the backend cannot provide it.
func (e *env) newController(ctx context.Context) *polling.Controller {
	logger := zerolog.Ctx(ctx)
	intervals := polling.DefaultIntervals()
	if cfg, err := e.adapter.PollingConfig(ctx); err != nil {
		logger.Warn().Err(err).Msg("polling config unavailable, using defaults")
	} else {
		intervals = polling.IntervalsFromConfig(cfg)
	}
	return polling.NewController(polling.WithLogger(*logger), polling.WithIntervals(intervals))
}

// appConfig returns the backend's sanitized app config, or nil when unavailable.
func (e *env) appConfig(ctx context.Context) *domain.AppConfig {
	app, err := e.adapter.AppConfig(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("app config unavailable")
		return nil
	}
	return &app
}

// project resolves the GitLab project: explicit value, config default, then the
// origin remote of the working directory.
func (e *env) project(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if e.cfg.Project.Default != "" {
		return e.cfg.Project.Default, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	project, err := git.DetectProject(cwd)
	if err != nil {
		return "", fmt.Errorf("no --project given and none detected: %w", err)
	}
	return project, nil
}

// sourceBranch resolves the branch the fixes are pushed to.
func (e *env) sourceBranch(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if e.cfg.Project.SourceBranch != "" {
		return e.cfg.Project.SourceBranch, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	branch, err := git.CurrentBranch(cwd)
	if err != nil {
		return "", fmt.Errorf("no --source given and none detected: %w", err)
	}
	return branch, nil
}
