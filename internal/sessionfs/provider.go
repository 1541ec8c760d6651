// Package sessionfs abstracts the filesystem the session logs live on.
// The reconstruction engine is transport-agnostic: local disk and
// remote-via-SSH disks sit behind the same provider interface, and all
// retry behavior belongs to the provider, never to the engine.
package sessionfs

import (
	"context"
	"time"
)

// FileInfo is the stat result the engine needs: existence is conveyed by
// the error return of Stat.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Provider exposes the three operations the engine performs against a
// session store: read a file, list a directory, stat a path.
type Provider interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, dir string) ([]DirEntry, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
}
