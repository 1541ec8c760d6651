// Package timeline flattens a reconstructed session into the externally
// consumed views: UI-ready chunks, lightweight groups, aggregate metrics,
// and a time-ordered waterfall. It is a pure consumer — any inconsistency
// it surfaces points at an upstream bug, not a decision made here.
package timeline

import (
	"time"

	"github.com/MikeSquared-Agency/argus/internal/contexttrack"
	"github.com/MikeSquared-Agency/argus/internal/conversation"
	"github.com/MikeSquared-Agency/argus/internal/pricing"
	"github.com/MikeSquared-Agency/argus/internal/record"
	"github.com/MikeSquared-Agency/argus/internal/session"
)

// ChunkKind tags a flattened chunk.
type ChunkKind string

const (
	ChunkUser       ChunkKind = "user"
	ChunkThinking   ChunkKind = "thinking"
	ChunkText       ChunkKind = "text"
	ChunkTool       ChunkKind = "tool"
	ChunkCompaction ChunkKind = "compaction"
)

// Chunk is one element of the flattened, UI-ready sequence. A tool chunk
// that spawned a nested session carries that session's own chunk sequence
// as an expandable subtree.
type Chunk struct {
	Kind      ChunkKind `json:"kind"`
	Turn      int       `json:"turn"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Text      string    `json:"text,omitempty"`

	ToolID     string `json:"toolId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	ToolDone   bool   `json:"toolDone,omitempty"`
	ToolFailed bool   `json:"toolFailed,omitempty"`

	Tokens int `json:"tokens,omitempty"`

	Subagent []Chunk `json:"subagent,omitempty"`
}

// Group is the trimmed per-turn entry for list views.
type Group struct {
	Turn          int       `json:"turn"`
	Phase         int       `json:"phase"`
	UserText      string    `json:"userText,omitempty"`
	AssistantText string    `json:"assistantText,omitempty"`
	ToolCount     int       `json:"toolCount"`
	Tokens        int       `json:"tokens"`
	StartedAt     time.Time `json:"startedAt,omitempty"`
}

// Metrics aggregates the whole session. Cost is nil when any observed
// model is missing from the pricing table — unknown, never zero.
type Metrics struct {
	Messages    int                           `json:"messages"`
	Turns       int                           `json:"turns"`
	Compactions int                           `json:"compactions"`
	Duration    time.Duration                 `json:"duration"`
	Usage       record.Usage                  `json:"usage"`
	Category    map[contexttrack.Category]int `json:"category"`
	Cost        *float64                      `json:"cost,omitempty"`
	CostByModel map[string]float64            `json:"costByModel,omitempty"`
}

// WaterfallEntry is one bar of the start/duration-ordered timeline.
type WaterfallEntry struct {
	Turn      int       `json:"turn"`
	Kind      string    `json:"kind"`
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	OffsetSec float64   `json:"offsetSec"`
	DurSec    float64   `json:"durSec"`
	Tokens    int       `json:"tokens"`
}

// View bundles every externally consumed projection of one session.
type View struct {
	SessionID string           `json:"sessionId"`
	Chunks    []Chunk          `json:"chunks"`
	Groups    []Group          `json:"groups"`
	Metrics   Metrics          `json:"metrics"`
	Waterfall []WaterfallEntry `json:"waterfall"`
}

// Build produces all views for a reconstructed session.
func Build(sess *session.Session, table *pricing.Table) *View {
	return &View{
		SessionID: sess.ID,
		Chunks:    buildChunks(sess),
		Groups:    buildGroups(sess),
		Metrics:   buildMetrics(sess, table),
		Waterfall: buildWaterfall(sess),
	}
}

func buildChunks(sess *session.Session) []Chunk {
	if sess.Conversation == nil {
		return nil
	}
	var chunks []Chunk
	for _, ev := range sess.Conversation.Events {
		if ev.Compaction != nil {
			chunks = append(chunks, Chunk{
				Kind:      ChunkCompaction,
				Turn:      -1,
				Timestamp: ev.Compaction.Timestamp,
				Text:      ev.Compaction.PlainText(),
			})
			continue
		}
		chunks = append(chunks, turnChunks(sess, ev.Turn)...)
	}
	return chunks
}

// turnChunks flattens one turn preserving record order: the prompt, then
// each assistant record's blocks, with tool chunks emitted at their
// tool_use position and subagents inlined under the spawning call.
func turnChunks(sess *session.Session, turn *conversation.Turn) []Chunk {
	var chunks []Chunk

	if turn.User != nil {
		if text := turn.UserText(); text != "" {
			chunks = append(chunks, Chunk{
				Kind:      ChunkUser,
				Turn:      turn.Index,
				Timestamp: turn.User.Timestamp,
				Text:      text,
			})
		}
	}

	for _, rec := range turn.Assistants {
		for _, b := range rec.Blocks {
			switch b.Type {
			case record.BlockThinking:
				chunks = append(chunks, Chunk{
					Kind:      ChunkThinking,
					Turn:      turn.Index,
					Timestamp: rec.Timestamp,
					Text:      b.Thinking,
				})
			case record.BlockText:
				chunks = append(chunks, Chunk{
					Kind:      ChunkText,
					Turn:      turn.Index,
					Timestamp: rec.Timestamp,
					Text:      b.Text,
				})
			case record.BlockToolUse:
				lt := turn.Tools[b.ToolID]
				if lt == nil {
					continue
				}
				chunk := Chunk{
					Kind:      ChunkTool,
					Turn:      turn.Index,
					Timestamp: rec.Timestamp,
					ToolID:    lt.ID,
					ToolName:  lt.Name,
					Tokens:    lt.Tokens(),
				}
				if lt.Result != nil {
					chunk.ToolDone = true
					chunk.ToolFailed = lt.Result.IsError
					chunk.Text = lt.Result.ResultText
				}
				if child, ok := sess.Subagents[lt.ID]; ok {
					chunk.Subagent = buildChunks(child)
				}
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}

func buildGroups(sess *session.Session) []Group {
	var groups []Group
	for _, turn := range sess.Turns() {
		g := Group{
			Turn:      turn.Index,
			Phase:     sess.Context.TurnPhase[turn.Index],
			UserText:  firstLine(turn.UserText()),
			ToolCount: len(turn.ToolOrder),
			StartedAt: turn.StartedAt,
		}
		for _, rec := range turn.Assistants {
			if g.AssistantText != "" {
				break
			}
			g.AssistantText = firstLine(rec.PlainText())
		}
		if turn.LastUsage != nil {
			g.Tokens = turn.LastUsage.Total()
		}
		groups = append(groups, g)
	}
	return groups
}

func buildMetrics(sess *session.Session, table *pricing.Table) Metrics {
	m := Metrics{
		Turns:       len(sess.Turns()),
		Compactions: sess.Context.Compactions,
		Category:    make(map[contexttrack.Category]int),
		CostByModel: make(map[string]float64),
	}
	if sess.Conversation != nil {
		m.Messages = len(sess.Conversation.Records)
		m.Duration = sess.Conversation.Duration()
	}

	if n := len(sess.Context.Stats); n > 0 {
		last := sess.Context.Stats[n-1]
		for c, v := range last.CategoryTokens {
			m.Category[c] = v
		}
	}

	costKnown := true
	total := 0.0
	if sess.Conversation != nil {
		for _, rec := range sess.Conversation.Records {
			if rec.Usage == nil {
				continue
			}
			m.Usage.Add(*rec.Usage)
			rate, ok := table.Rate(rec.Model)
			if !ok {
				costKnown = false
				continue
			}
			c := pricing.Cost(*rec.Usage, rate)
			total += c
			m.CostByModel[rec.Model] += c
		}
	}
	if costKnown {
		m.Cost = &total
	}
	return m
}

func buildWaterfall(sess *session.Session) []WaterfallEntry {
	var origin time.Time
	if sess.Conversation != nil {
		for _, rec := range sess.Conversation.Records {
			if !rec.Timestamp.IsZero() && (origin.IsZero() || rec.Timestamp.Before(origin)) {
				origin = rec.Timestamp
			}
		}
	}

	var entries []WaterfallEntry
	for _, turn := range sess.Turns() {
		if turn.StartedAt.IsZero() {
			continue
		}
		label := firstLine(turn.UserText())
		if label == "" {
			label = "agent turn"
		}
		e := WaterfallEntry{
			Turn:      turn.Index,
			Kind:      "turn",
			Label:     label,
			Start:     turn.StartedAt,
			OffsetSec: turn.StartedAt.Sub(origin).Seconds(),
			DurSec:    turn.EndedAt.Sub(turn.StartedAt).Seconds(),
		}
		if turn.LastUsage != nil {
			e.Tokens = turn.LastUsage.Total()
		}
		entries = append(entries, e)

		for _, lt := range turn.LinkedTools() {
			entries = append(entries, WaterfallEntry{
				Turn:      turn.Index,
				Kind:      "tool",
				Label:     lt.Name,
				Start:     turn.StartedAt,
				OffsetSec: turn.StartedAt.Sub(origin).Seconds(),
				Tokens:    lt.Tokens(),
			})
		}
	}
	return entries
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
