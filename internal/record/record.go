// Package record decodes raw session log lines into typed records.
//
// The log format is imposed by the external CLI tool and is read as-is:
// unknown fields are preserved opaquely, malformed lines are skipped and
// surfaced as non-fatal diagnostics. A session file is append-only and may
// be read mid-write, so the parser never aborts on a bad line.
package record

import (
	"encoding/json"
	"time"
)

// Kind classifies a decoded log record.
type Kind string

const (
	KindUser                Kind = "user"
	KindAssistant           Kind = "assistant"
	KindSystem              Kind = "system"
	KindSummary             Kind = "summary"
	KindFileHistorySnapshot Kind = "file-history-snapshot"
	KindQueueOperation      Kind = "queue-operation"
	// KindCompaction marks a context-compaction boundary. The wire format
	// has no dedicated type for it: it is derived from a system record with
	// subtype "compact_boundary" or a user record flagged isCompactSummary.
	KindCompaction Kind = "compaction"
)

// Usage carries the token counters reported on an assistant response.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// Total is the context-window occupancy this response reports: the sum of
// all four counters.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

// IsZero reports whether no counter is set (streaming prefix records).
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 &&
		u.CacheReadInputTokens == 0 && u.CacheCreationInputTokens == 0
}

// Add accumulates counters from another usage record.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadInputTokens += o.CacheReadInputTokens
	u.CacheCreationInputTokens += o.CacheCreationInputTokens
}

// BlockType tags a content block variant.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	// BlockUnknown preserves shapes this version does not recognize.
	// They are carried through but never interpreted.
	BlockUnknown BlockType = "unknown"
)

// Block is one decoded content block. Only the fields matching its Type
// are populated; Raw always holds the original JSON.
type Block struct {
	Type BlockType

	// Text / Thinking payloads.
	Text     string
	Thinking string

	// Tool invocation (tool_use) fields.
	ToolID    string
	ToolName  string
	ToolInput json.RawMessage

	// Tool result fields. ToolID carries tool_use_id for results.
	ResultText string
	IsError    bool

	Raw json.RawMessage
}

// LogRecord is one decoded line of a session log.
type LogRecord struct {
	Kind       Kind
	UUID       string
	ParentUUID string
	SessionID  string
	Timestamp  time.Time

	CWD       string
	GitBranch string
	Model     string
	Subtype   string

	IsSidechain      bool
	IsMeta           bool
	IsCompactSummary bool

	// Usage is non-nil only when the line reported token counters.
	Usage *Usage

	Role string
	// Text is set when message content arrived as a plain string.
	Text   string
	Blocks []Block

	// Raw preserves the full original line for forward compatibility.
	Raw json.RawMessage
}

// HasToolResults reports whether any block is a tool result.
func (r *LogRecord) HasToolResults() bool {
	for _, b := range r.Blocks {
		if b.Type == BlockToolResult {
			return true
		}
	}
	return false
}

// OnlyToolResults reports whether the record carries tool results and
// nothing else the user typed — such records are transport for a prior
// invocation, not a new prompt.
func (r *LogRecord) OnlyToolResults() bool {
	if r.Text != "" || len(r.Blocks) == 0 {
		return false
	}
	for _, b := range r.Blocks {
		if b.Type != BlockToolResult {
			return false
		}
	}
	return true
}

// PlainText flattens the record's user-visible text: the plain string
// content if present, otherwise all text blocks joined by newlines.
func (r *LogRecord) PlainText() string {
	if r.Text != "" {
		return r.Text
	}
	var out string
	for _, b := range r.Blocks {
		if b.Type != BlockText || b.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// Diagnostic records a line that could not be decoded. Diagnostics are
// non-fatal: the line is skipped and processing continues.
type Diagnostic struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
