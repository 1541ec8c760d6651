package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
)

func TestListSessions(t *testing.T) {
	projects := t.TempDir()
	proj := filepath.Join(projects, "-home-u-myrepo")

	older := "11111111-1111-4111-8111-111111111111"
	newer := "22222222-2222-4222-8222-222222222222"

	writeLines(t, filepath.Join(proj, older+".jsonl"),
		`{"type":"user","uuid":"u1","sessionId":"`+older+`","cwd":"/home/u/myrepo","gitBranch":"main","timestamp":"2026-02-10T09:00:00Z","message":{"role":"user","content":"refactor  the\nparser"}}`,
		`{"type":"assistant","uuid":"a1","sessionId":"`+older+`","timestamp":"2026-02-10T09:05:00Z","message":{"role":"assistant","content":[{"type":"text","text":"ok"}]}}`,
	)
	writeLines(t, filepath.Join(proj, newer+".jsonl"),
		`{"type":"user","uuid":"u2","sessionId":"`+newer+`","timestamp":"2026-02-11T12:00:00Z","message":{"role":"user","content":"add tests"}}`,
	)

	// Not sessions: a non-UUID file, a stray file at the top level, and a
	// subagent directory.
	writeLines(t, filepath.Join(proj, "notes.jsonl"), `{"type":"user","uuid":"x"}`)
	if err := os.WriteFile(filepath.Join(projects, "stray.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(proj, older, "subagents"), 0o755); err != nil {
		t.Fatal(err)
	}

	infos, err := ListSessions(context.Background(), sessionfs.NewLocal(), projects, discardLogger())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("sessions = %d, want 2: %+v", len(infos), infos)
	}

	// Newest first.
	if infos[0].ID != newer || infos[1].ID != older {
		t.Errorf("order = %q, %q", infos[0].ID, infos[1].ID)
	}

	old := infos[1]
	if old.Project != "-home-u-myrepo" || old.CWD != "/home/u/myrepo" || old.GitBranch != "main" {
		t.Errorf("metadata = %+v", old)
	}
	if old.MessageCount != 2 {
		t.Errorf("message count = %d", old.MessageCount)
	}
	if old.Summary != "refactor the parser" {
		t.Errorf("summary = %q", old.Summary)
	}
	if old.StartTime.IsZero() || !old.EndTime.After(old.StartTime) {
		t.Errorf("time range = %v .. %v", old.StartTime, old.EndTime)
	}
}

func TestListSessions_MissingDir(t *testing.T) {
	_, err := ListSessions(context.Background(), sessionfs.NewLocal(), filepath.Join(t.TempDir(), "absent"), discardLogger())
	if err == nil {
		t.Error("missing projects dir must fail")
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain prompt", "plain prompt"},
		{"<tag>wrapped</tag> text", "wrapped text"},
		{"line\none\r\nline two", "line one line two"},
	}
	for _, c := range cases {
		if got := summarize(c.in); got != c.want {
			t.Errorf("summarize(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := summarize(strings.Repeat("x", 300))
	if len([]rune(long)) != 120 || !strings.HasSuffix(long, "..") {
		t.Errorf("long summary = %q (len %d)", long, len([]rune(long)))
	}
}
