package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/argus/internal/contexttrack"
	"github.com/MikeSquared-Agency/argus/internal/conversation"
	"github.com/MikeSquared-Agency/argus/internal/record"
	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
)

// defaultSubagentLimit bounds how many nested session logs are read
// concurrently during resolution.
const defaultSubagentLimit = 4

// Engine runs the reconstruction pipeline. It holds collaborators only;
// all derived state is built fresh per call, so a single Engine may serve
// concurrent reconstructions of different sessions.
type Engine struct {
	fs      sessionfs.Provider
	cfg     sessionfs.ConfigReader
	homeDir string
	logger  *slog.Logger
	limit   int
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithConfigReader overrides the default config-file prober.
func WithConfigReader(cfg sessionfs.ConfigReader) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithHomeDir anchors the user-scope configuration candidates.
func WithHomeDir(dir string) Option {
	return func(e *Engine) { e.homeDir = dir }
}

// WithSubagentLimit bounds concurrent subagent resolution.
func WithSubagentLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// New builds an engine reading through fs.
func New(fs sessionfs.Provider, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		fs:     fs,
		cfg:    sessionfs.NewConfigReader(fs),
		logger: logger,
		limit:  defaultSubagentLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconstruct rebuilds the session at path from its log. Inability to
// open the log reports ErrNotFound; everything recoverable inside the log
// degrades per record instead of failing the session.
func (e *Engine) Reconstruct(ctx context.Context, path string) (*Session, error) {
	visited := newVisitedSet()
	return e.reconstruct(ctx, path, visited)
}

func (e *Engine) reconstruct(ctx context.Context, path string, visited *visitedSet) (*Session, error) {
	norm := contexttrack.NormalizePath(path)
	if !visited.tryVisit(norm) {
		return nil, fmt.Errorf("session %s: spawn cycle detected", path)
	}

	data, err := e.fs.ReadFile(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("open session log %s: %w", path, errors.Join(ErrNotFound, err))
	}

	records, diags, err := record.ParseAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse session log %s: %w", path, err)
	}

	conv := conversation.Group(records, diags)

	tracker := contexttrack.NewTracker(e.cfg, e.homeDir, e.logger)
	result, err := tracker.Track(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("track session %s: %w", path, err)
	}

	sess := &Session{
		ID:           conv.SessionID,
		Path:         path,
		CWD:          conv.CWD,
		GitBranch:    conv.GitBranch,
		Conversation: conv,
		Context:      result,
		Diagnostics:  diags,
	}

	e.attachTaskList(ctx, sess)

	if err := e.resolveSubagents(ctx, sess, visited); err != nil {
		return nil, err
	}

	return sess, nil
}

// attachTaskList reads the companion task state file next to the log, if
// present. The blob is opaque to the engine and passed through as-is.
func (e *Engine) attachTaskList(ctx context.Context, sess *Session) {
	stem := strings.TrimSuffix(sess.Path, ".jsonl")
	taskPath := stem + "-tasks.json"
	data, err := e.fs.ReadFile(ctx, taskPath)
	if err != nil {
		return
	}
	sess.TaskList = data
}
