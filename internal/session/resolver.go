package session

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/argus/internal/conversation"
)

// visitedSet guards the recursive walk against spawn cycles. The source
// log should never exhibit one, but the resolver must not hang if it
// does. Keys are normalized log paths — the session identity on disk.
type visitedSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]bool)}
}

// tryVisit marks key visited and reports whether this is the first visit.
func (v *visitedSet) tryVisit(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[key] {
		return false
	}
	v.seen[key] = true
	return true
}

// subagentLogPath is the deterministic location of the session spawned by
// an invocation: a per-session directory next to the parent log, one file
// per invocation id.
func subagentLogPath(parentPath, invocationID string) string {
	stem := strings.TrimSuffix(parentPath, ".jsonl")
	return stem + "/subagents/" + invocationID + ".jsonl"
}

// resolveSubagents locates and recursively reconstructs the nested
// session behind every spawn invocation in the parent. Independent spawns
// resolve concurrently, each with its own isolated accumulator state; a
// failed resolution leaves that invocation's subagent absent rather than
// failing the parent.
func (e *Engine) resolveSubagents(ctx context.Context, parent *Session, visited *visitedSet) error {
	var spawns []*conversation.LinkedTool
	for _, turn := range parent.Turns() {
		for _, lt := range turn.LinkedTools() {
			if lt.IsSpawn() {
				spawns = append(spawns, lt)
			}
		}
	}
	if len(spawns) == 0 {
		return nil
	}

	results := make([]*Session, len(spawns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i, lt := range spawns {
		i, lt := i, lt
		g.Go(func() error {
			path := subagentLogPath(parent.Path, lt.ID)
			child, err := e.reconstruct(gctx, path, visited)
			if err != nil {
				// Absent or unreadable nested logs are expected: the
				// spawn may predate per-invocation logging, or the tool
				// may still be running.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("subagent resolution failed",
					"invocation", lt.ID,
					"path", path,
					"error", err,
				)
				return nil
			}
			results[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, lt := range spawns {
		if results[i] == nil {
			continue
		}
		if parent.Subagents == nil {
			parent.Subagents = make(map[string]*Session, len(spawns))
		}
		parent.Subagents[lt.ID] = results[i]
	}
	return nil
}
