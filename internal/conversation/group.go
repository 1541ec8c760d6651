package conversation

import (
	"time"

	"github.com/MikeSquared-Agency/argus/internal/record"
)

// Turn is one user-prompt-to-assistant-response cycle, the atomic unit of
// context tracking. A turn may be agent-initiated (no user record). The
// index increments once per AI turn, not per record: all tool round-trips
// belong to the turn that issued them.
type Turn struct {
	Index int

	// User is the prompt that opened the turn; nil for agent-initiated turns.
	User       *record.LogRecord
	Assistants []*record.LogRecord

	// Meta holds the injected user-role bookkeeping records (caveats,
	// system reminders, file-load notices) that ride along with the turn
	// but were not typed by anyone.
	Meta []*record.LogRecord

	// Tools maps invocation id to its linked call/result pair. Order
	// preserves first appearance so downstream output is deterministic.
	Tools     map[string]*LinkedTool
	ToolOrder []string

	// FirstUsage and LastUsage are the first and last assistant-reported
	// token counters inside the turn; nil when the log carried none.
	FirstUsage *record.Usage
	LastUsage  *record.Usage

	Model     string
	StartedAt time.Time
	EndedAt   time.Time
}

// LinkedTools returns the linked tools in first-appearance order.
func (t *Turn) LinkedTools() []*LinkedTool {
	out := make([]*LinkedTool, 0, len(t.ToolOrder))
	for _, id := range t.ToolOrder {
		out = append(out, t.Tools[id])
	}
	return out
}

// UserText is the raw text the user sent this turn — the pre-processing
// text actually transmitted to the model, not a display-sanitized copy.
func (t *Turn) UserText() string {
	if t.User == nil {
		return ""
	}
	return t.User.PlainText()
}

// Event is one element of the grouped stream: either a turn or a
// compaction boundary. A compaction marker is a boundary event, never
// part of a turn.
type Event struct {
	Turn       *Turn
	Compaction *record.LogRecord
}

// Conversation is the grouped, tool-linked form of one session log.
type Conversation struct {
	SessionID string
	CWD       string
	GitBranch string

	Events []Event
	Turns  []*Turn

	// Records keeps every decoded line, including the boundary and meta
	// kinds that do not belong to any turn.
	Records     []*record.LogRecord
	Diagnostics []record.Diagnostic
}

// Duration is the wall-clock span between the first and last timestamped
// records.
func (c *Conversation) Duration() time.Duration {
	var first, last time.Time
	for _, r := range c.Records {
		if r.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if last.IsZero() || r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	if first.IsZero() {
		return 0
	}
	return last.Sub(first)
}

// Group partitions records into ordered turns in a single forward pass.
// The only permitted lookback is attaching a tool result to its
// already-seen invocation; the pass never looks ahead.
func Group(records []*record.LogRecord, diags []record.Diagnostic) *Conversation {
	conv := &Conversation{
		Records:     records,
		Diagnostics: diags,
	}

	var current *Turn
	var pendingMeta []*record.LogRecord
	nextIndex := 0

	closeTurn := func() {
		if current == nil {
			return
		}
		conv.Events = append(conv.Events, Event{Turn: current})
		conv.Turns = append(conv.Turns, current)
		current = nil
	}
	openTurn := func(user *record.LogRecord) *Turn {
		t := &Turn{
			Index: nextIndex,
			User:  user,
			Tools: make(map[string]*LinkedTool),
			Meta:  pendingMeta,
		}
		pendingMeta = nil
		nextIndex++
		if user != nil {
			t.StartedAt = user.Timestamp
			t.EndedAt = user.Timestamp
		}
		return t
	}

	for _, rec := range records {
		if conv.SessionID == "" && rec.SessionID != "" {
			conv.SessionID = rec.SessionID
		}
		if conv.CWD == "" && rec.CWD != "" {
			conv.CWD = rec.CWD
		}
		if conv.GitBranch == "" && rec.GitBranch != "" {
			conv.GitBranch = rec.GitBranch
		}

		// Sidechain records belong to inlined subagent transcripts, not
		// to the parent conversation.
		if rec.IsSidechain {
			continue
		}

		switch rec.Kind {
		case record.KindCompaction:
			closeTurn()
			conv.Events = append(conv.Events, Event{Compaction: rec})

		case record.KindUser:
			if rec.IsMeta {
				// Injected bookkeeping, not a prompt: it never opens or
				// closes a turn.
				if current != nil {
					current.Meta = append(current.Meta, rec)
					touch(current, rec.Timestamp)
				} else {
					pendingMeta = append(pendingMeta, rec)
				}
				continue
			}
			if rec.OnlyToolResults() && current != nil {
				// Transport for a prior invocation: attach results to the
				// open turn and stay inside it.
				attachResults(current, rec)
				touch(current, rec.Timestamp)
				continue
			}
			closeTurn()
			current = openTurn(rec)
			// A prompt can carry tool results alongside new content.
			attachResults(current, rec)

		case record.KindAssistant:
			if current == nil {
				current = openTurn(nil) // agent-initiated turn
			}
			current.Assistants = append(current.Assistants, rec)
			touch(current, rec.Timestamp)
			if current.Model == "" && rec.Model != "" {
				current.Model = rec.Model
			}
			if rec.Usage != nil {
				u := *rec.Usage
				if current.FirstUsage == nil {
					current.FirstUsage = &u
				}
				lu := u
				current.LastUsage = &lu
			}
			for _, b := range rec.Blocks {
				if b.Type != record.BlockToolUse || b.ToolID == "" {
					continue
				}
				if _, ok := current.Tools[b.ToolID]; ok {
					continue
				}
				current.Tools[b.ToolID] = newLinkedTool(b)
				current.ToolOrder = append(current.ToolOrder, b.ToolID)
			}

		default:
			// system, summary, file-history-snapshot, queue-operation:
			// boundary or bookkeeping records, not part of any turn.
		}
	}
	closeTurn()

	return conv
}

// attachResults pairs every tool_result block in rec with its invocation
// in the open turn. Results whose invocation was never seen are ignored:
// matching is by exact invocation id only.
func attachResults(t *Turn, rec *record.LogRecord) {
	for _, b := range rec.Blocks {
		if b.Type != record.BlockToolResult || b.ToolID == "" {
			continue
		}
		if lt, ok := t.Tools[b.ToolID]; ok && lt.Result == nil {
			lt.attachResult(b)
		}
	}
}

func touch(t *Turn, ts time.Time) {
	if ts.IsZero() {
		return
	}
	if t.StartedAt.IsZero() || ts.Before(t.StartedAt) {
		t.StartedAt = ts
	}
	if ts.After(t.EndedAt) {
		t.EndedAt = ts
	}
}
