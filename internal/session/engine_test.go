package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/argus/internal/contexttrack"
	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeLines writes a session log fixture, one JSON record per line.
func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReconstruct_MissingLog(t *testing.T) {
	e := New(sessionfs.NewLocal(), discardLogger())
	_, err := e.Reconstruct(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReconstruct_FullSession(t *testing.T) {
	dir := t.TempDir()
	cwd := filepath.Join(dir, "work")
	if err := os.MkdirAll(cwd, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cwd, "CLAUDE.md"), []byte("always run gofmt"), 0o644); err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(dir, "sess.jsonl")
	writeLines(t, logPath,
		`{"type":"user","uuid":"u1","sessionId":"s-main","cwd":"`+cwd+`","gitBranch":"main","timestamp":"2026-02-11T10:00:00Z","message":{"role":"user","content":"spawn a helper"}}`,
		`{"type":"assistant","uuid":"a1","sessionId":"s-main","timestamp":"2026-02-11T10:00:02Z","message":{"role":"assistant","model":"claude-sonnet-4-20250514","usage":{"input_tokens":100,"output_tokens":20},"content":[{"type":"tool_use","id":"toolu_sub","name":"Task","input":{"prompt":"investigate"}}]}}`,
		`{"type":"user","uuid":"u2","sessionId":"s-main","timestamp":"2026-02-11T10:01:00Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_sub","content":"investigation complete"}]}}`,
	)
	writeLines(t, filepath.Join(dir, "sess", "subagents", "toolu_sub.jsonl"),
		`{"type":"user","uuid":"su1","sessionId":"s-sub","timestamp":"2026-02-11T10:00:10Z","message":{"role":"user","content":"investigate"}}`,
		`{"type":"assistant","uuid":"sa1","sessionId":"s-sub","timestamp":"2026-02-11T10:00:40Z","message":{"role":"assistant","content":[{"type":"text","text":"found it"}]}}`,
	)
	if err := os.WriteFile(filepath.Join(dir, "sess-tasks.json"), []byte(`{"tasks":[{"id":1}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	e := New(sessionfs.NewLocal(), discardLogger(), WithHomeDir(filepath.Join(dir, "home")))
	sess, err := e.Reconstruct(context.Background(), logPath)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	if sess.ID != "s-main" || sess.CWD != cwd || sess.GitBranch != "main" {
		t.Errorf("session metadata = %q %q %q", sess.ID, sess.CWD, sess.GitBranch)
	}
	if len(sess.Turns()) != 1 {
		t.Fatalf("turns = %d, want 1", len(sess.Turns()))
	}
	if sess.Context == nil || len(sess.Context.Stats) != 1 {
		t.Fatalf("context result = %+v", sess.Context)
	}

	// The project-scope config file in the session cwd must be accounted.
	foundMD := false
	for _, inj := range sess.Context.Stats[0].Accumulated {
		if inj.Category == contexttrack.CategoryClaudeMD &&
			inj.Label == contexttrack.NormalizePath(filepath.Join(cwd, "CLAUDE.md")) {
			foundMD = true
			if inj.Tokens != 4 {
				t.Errorf("claude-md tokens = %d, want 4", inj.Tokens)
			}
		}
	}
	if !foundMD {
		t.Error("cwd CLAUDE.md not accounted")
	}

	sub, ok := sess.Subagents["toolu_sub"]
	if !ok {
		t.Fatal("subagent not resolved")
	}
	if sub.ID != "s-sub" || len(sub.Turns()) != 1 {
		t.Errorf("subagent = %q with %d turns", sub.ID, len(sub.Turns()))
	}
	if sub.Context == nil {
		t.Error("subagent tracked with no context result")
	}

	if string(sess.TaskList) != `{"tasks":[{"id":1}]}` {
		t.Errorf("task list = %s", sess.TaskList)
	}
}

func TestReconstruct_AbsentSubagentTolerated(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sess.jsonl")
	writeLines(t, logPath,
		`{"type":"user","uuid":"u1","sessionId":"s1","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","uuid":"a1","sessionId":"s1","message":{"role":"assistant","content":[{"type":"tool_use","id":"toolu_gone","name":"Task","input":{"prompt":"x"}}]}}`,
	)

	e := New(sessionfs.NewLocal(), discardLogger())
	sess, err := e.Reconstruct(context.Background(), logPath)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(sess.Subagents) != 0 {
		t.Errorf("subagents = %+v, want none", sess.Subagents)
	}
}

func TestReconstruct_DiagnosticsCarried(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sess.jsonl")
	writeLines(t, logPath,
		`{"type":"user","uuid":"u1","sessionId":"s1","message":{"role":"user","content":"ok"}}`,
		`this line is broken`,
	)

	e := New(sessionfs.NewLocal(), discardLogger())
	sess, err := e.Reconstruct(context.Background(), logPath)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(sess.Diagnostics) != 1 || sess.Diagnostics[0].Line != 2 {
		t.Errorf("diagnostics = %+v", sess.Diagnostics)
	}
}

func TestVisitedSet(t *testing.T) {
	v := newVisitedSet()
	if !v.tryVisit("/a.jsonl") {
		t.Error("first visit refused")
	}
	if v.tryVisit("/a.jsonl") {
		t.Error("second visit allowed")
	}
	if !v.tryVisit("/b.jsonl") {
		t.Error("distinct key refused")
	}
}

func TestSubagentLogPath(t *testing.T) {
	got := subagentLogPath("/p/sess.jsonl", "toolu_1")
	if got != "/p/sess/subagents/toolu_1.jsonl" {
		t.Errorf("path = %q", got)
	}
}
