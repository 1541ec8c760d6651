package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/argus/internal/record"
	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
)

// Info is the lightweight listing entry for one discovered session.
type Info struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	Project      string    `json:"project"`
	Summary      string    `json:"summary"`
	CWD          string    `json:"cwd,omitempty"`
	GitBranch    string    `json:"gitBranch,omitempty"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	MessageCount int       `json:"messageCount"`
}

var systemTagRe = regexp.MustCompile(`<[^>]+>`)

// ListSessions discovers session logs under a projects directory: one
// subdirectory per project, one UUID-named .jsonl per session. Unreadable
// projects and files are skipped, not fatal — the directory is shared
// with a tool that is actively writing to it.
func ListSessions(ctx context.Context, fs sessionfs.Provider, projectsDir string, logger *slog.Logger) ([]Info, error) {
	if logger == nil {
		logger = slog.Default()
	}

	projects, err := fs.List(ctx, projectsDir)
	if err != nil {
		return nil, fmt.Errorf("list projects dir %s: %w", projectsDir, err)
	}

	var infos []Info
	for _, proj := range projects {
		if !proj.IsDir {
			continue
		}
		projDir := projectsDir + "/" + proj.Name
		entries, err := fs.List(ctx, projDir)
		if err != nil {
			logger.Warn("skipping unreadable project dir", "dir", projDir, "error", err)
			continue
		}
		for _, entry := range entries {
			// Only top-level .jsonl files; subdirectories hold per-session
			// subagent logs.
			if entry.IsDir || !strings.HasSuffix(entry.Name, ".jsonl") {
				continue
			}
			id := strings.TrimSuffix(entry.Name, ".jsonl")
			if _, err := uuid.Parse(id); err != nil {
				continue
			}
			path := projDir + "/" + entry.Name
			info, err := sessionInfo(ctx, fs, path, id, proj.Name)
			if err != nil {
				logger.Warn("skipping unreadable session", "path", path, "error", err)
				continue
			}
			if info != nil {
				infos = append(infos, *info)
			}
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartTime.After(infos[j].StartTime)
	})
	return infos, nil
}

// sessionInfo extracts listing metadata from one session log.
func sessionInfo(ctx context.Context, fs sessionfs.Provider, path, id, project string) (*Info, error) {
	data, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	records, _, err := record.ParseAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	info := &Info{
		ID:           id,
		Path:         path,
		Project:      project,
		MessageCount: len(records),
	}

	for _, rec := range records {
		if !rec.Timestamp.IsZero() {
			if info.StartTime.IsZero() || rec.Timestamp.Before(info.StartTime) {
				info.StartTime = rec.Timestamp
			}
			if info.EndTime.IsZero() || rec.Timestamp.After(info.EndTime) {
				info.EndTime = rec.Timestamp
			}
		}
		if info.CWD == "" && rec.CWD != "" {
			info.CWD = rec.CWD
		}
		if info.GitBranch == "" && rec.GitBranch != "" {
			info.GitBranch = rec.GitBranch
		}
		if info.Summary == "" && rec.Kind == record.KindUser && !rec.IsMeta && !rec.IsSidechain {
			info.Summary = summarize(rec.PlainText())
		}
	}

	return info, nil
}

// summarize trims a first user message down to a one-line listing label,
// stripping the XML-ish tags the CLI wraps injected content in.
func summarize(text string) string {
	s := systemTagRe.ReplaceAllString(text, "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.TrimSpace(s)

	const maxLen = 120
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-2]) + ".."
}
