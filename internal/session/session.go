// Package session orchestrates the reconstruction pipeline: parse,
// group, track, resolve. Everything it produces is derived from the log
// on each call — nothing is persisted and no state survives between
// invocations, so concurrent reconstructions never share mutable state.
package session

import (
	"encoding/json"
	"errors"

	"github.com/MikeSquared-Agency/argus/internal/contexttrack"
	"github.com/MikeSquared-Agency/argus/internal/conversation"
	"github.com/MikeSquared-Agency/argus/internal/record"
)

// ErrNotFound reports total inability to open the primary session file.
// It is the only fatal-to-caller condition the pipeline produces; check
// with errors.Is.
var ErrNotFound = errors.New("session not found")

// Session is one fully reconstructed conversation log.
type Session struct {
	ID   string `json:"id"`
	Path string `json:"path"`

	CWD       string `json:"cwd,omitempty"`
	GitBranch string `json:"gitBranch,omitempty"`

	Conversation *conversation.Conversation `json:"-"`
	Context      *contexttrack.Result       `json:"context"`

	// Subagents maps the spawning tool invocation id to the nested
	// session, itself fully reconstructed (recursively).
	Subagents map[string]*Session `json:"subagents,omitempty"`

	// TaskList is the companion per-session task state, passed through
	// untouched.
	TaskList json.RawMessage `json:"taskList,omitempty"`

	Diagnostics []record.Diagnostic `json:"diagnostics,omitempty"`
}

// Turns is shorthand for the ordered turn stream.
func (s *Session) Turns() []*conversation.Turn {
	if s.Conversation == nil {
		return nil
	}
	return s.Conversation.Turns
}
