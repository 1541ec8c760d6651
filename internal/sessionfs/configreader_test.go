package sessionfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	fs := NewLocal()

	data, err := fs.ReadFile(ctx, path)
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}

	entries, err := fs.List(ctx, dir)
	if err != nil || len(entries) != 1 || entries[0].Name != "a.txt" || entries[0].IsDir {
		t.Errorf("List = %+v, %v", entries, err)
	}

	info, err := fs.Stat(ctx, path)
	if err != nil || info.Size != 5 || info.IsDir {
		t.Errorf("Stat = %+v, %v", info, err)
	}
	if _, err := fs.Stat(ctx, filepath.Join(dir, "missing")); err == nil {
		t.Error("Stat of missing path must fail")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := fs.ReadFile(cancelled, path); err == nil {
		t.Error("cancelled context must abort the read")
	}
}

func TestConfigReader_Probe(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(full, []byte("use tabs\nrun the linter"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.md")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	cr := NewConfigReader(NewLocal())

	probe, err := cr.Probe(ctx, full)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !probe.Exists || probe.Chars != 23 || probe.Tokens != 6 {
		t.Errorf("probe = %+v", probe)
	}

	probe, err = cr.Probe(ctx, empty)
	if err != nil {
		t.Fatalf("probe empty: %v", err)
	}
	if !probe.Exists || probe.Chars != 0 || probe.Tokens != 0 {
		t.Errorf("empty probe = %+v", probe)
	}

	// Missing is an answer, not an error.
	probe, err = cr.Probe(ctx, filepath.Join(dir, "nope.md"))
	if err != nil {
		t.Fatalf("probe missing: %v", err)
	}
	if probe.Exists {
		t.Errorf("missing probe = %+v", probe)
	}

	// A directory is not a loadable file.
	probe, err = cr.Probe(ctx, dir)
	if err != nil {
		t.Fatalf("probe dir: %v", err)
	}
	if probe.Exists {
		t.Errorf("directory probe = %+v", probe)
	}
}
