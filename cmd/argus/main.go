package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/MikeSquared-Agency/argus/internal/config"
	"github.com/MikeSquared-Agency/argus/internal/pricing"
	"github.com/MikeSquared-Agency/argus/internal/session"
	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
	"github.com/MikeSquared-Agency/argus/internal/timeline"
)

const usage = `argus — reconstruct agent sessions and their context accounting

Usage:
  argus list                 list sessions under the projects dir
  argus show <log-path>      full session detail with subagent trees
  argus stats <log-path>     per-turn context stats and phase info
  argus waterfall <log-path> time-ordered waterfall view

Flags:
`

func main() {
	cfg := config.Load()

	flags := pflag.NewFlagSet("argus", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	projectsDir := flags.String("projects-dir", cfg.ProjectsDir, "Claude projects directory")
	pricingFile := flags.String("pricing", cfg.PricingFile, "pricing table YAML (default: built-in rates)")
	logLevel := flags.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	remote := flags.Bool("remote", false, "read the session store over SSH (ARGUS_SSH_* settings)")
	flags.Parse(os.Args[1:])

	setupLogging(*logLevel)

	if *remote && !flags.Changed("projects-dir") {
		*projectsDir = cfg.SSHProjectsDir
	}

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fs, cleanup, err := buildProvider(ctx, cfg, *remote)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	table := pricing.Default()
	if *pricingFile != "" {
		table, err = pricing.Load(*pricingFile)
		if err != nil {
			slog.Error("failed to load pricing table", "path", *pricingFile, "error", err)
			os.Exit(1)
		}
	}

	home, _ := os.UserHomeDir()
	engine := session.New(fs, slog.Default(),
		session.WithHomeDir(home),
		session.WithSubagentLimit(cfg.SubagentLimit),
	)

	switch args[0] {
	case "list":
		err = runList(ctx, fs, *projectsDir)
	case "show":
		err = runShow(ctx, engine, table, args[1:], fullView)
	case "stats":
		err = runShow(ctx, engine, table, args[1:], statsView)
	case "waterfall":
		err = runShow(ctx, engine, table, args[1:], waterfallView)
	default:
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			slog.Error("session not found", "error", err)
			os.Exit(1)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildProvider(ctx context.Context, cfg config.Config, remote bool) (sessionfs.Provider, func(), error) {
	if !remote {
		return sessionfs.NewLocal(), func() {}, nil
	}
	sshFS, err := sessionfs.DialSFTP(ctx, sessionfs.SSHConfig{
		Addr:     cfg.SSHAddr,
		User:     cfg.SSHUser,
		KeyFile:  cfg.SSHKeyFile,
		Password: cfg.SSHPassword,
	})
	if err != nil {
		return nil, nil, err
	}
	return sshFS, func() { sshFS.Close() }, nil
}

func runList(ctx context.Context, fs sessionfs.Provider, projectsDir string) error {
	infos, err := session.ListSessions(ctx, fs, projectsDir, slog.Default())
	if err != nil {
		return err
	}
	return emit(infos)
}

type viewFunc func(*session.Session, *pricing.Table) any

func fullView(sess *session.Session, table *pricing.Table) any {
	return timeline.Build(sess, table)
}

func statsView(sess *session.Session, _ *pricing.Table) any {
	return sess.Context
}

func waterfallView(sess *session.Session, table *pricing.Table) any {
	return timeline.Build(sess, table).Waterfall
}

func runShow(ctx context.Context, engine *session.Engine, table *pricing.Table, args []string, view viewFunc) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one session log path")
	}
	sess, err := engine.Reconstruct(ctx, args[0])
	if err != nil {
		return err
	}
	return emit(view(sess, table))
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
