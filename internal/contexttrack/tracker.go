package contexttrack

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/argus/internal/conversation"
	"github.com/MikeSquared-Agency/argus/internal/record"
	"github.com/MikeSquared-Agency/argus/internal/sessionfs"
	"github.com/MikeSquared-Agency/argus/internal/tokens"
)

// MentionedFileTokenCap is the fixed ceiling for a mentioned file to be
// counted at all. Files over the cap (or missing) are silently excluded,
// not recorded at zero cost.
const MentionedFileTokenCap = 25000

// enterpriseConfigPath is the managed-settings location the CLI loads on
// every machine.
const enterpriseConfigPath = "/etc/claude-code/CLAUDE.md"

// Injection is one attributable addition to context-window occupancy.
// ID is the deterministic dedup key (see Identity).
type Injection struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Label    string   `json:"label,omitempty"`
	Tokens   int      `json:"tokens"`
	// Thinking/text sub-totals, populated for CategoryThinkingText only.
	ThinkingTokens int `json:"thinkingTokens,omitempty"`
	TextTokens     int `json:"textTokens,omitempty"`
	Turn           int `json:"turn"`
	Phase          int `json:"phase"`
}

// Stats is the per-turn accounting: what newly entered the window this
// turn, the accumulated set to date, and category totals recomputed from
// that accumulated set.
type Stats struct {
	Turn           int              `json:"turn"`
	Phase          int              `json:"phase"`
	New            []Injection      `json:"new"`
	Accumulated    []Injection      `json:"accumulated"`
	CategoryTokens map[Category]int `json:"categoryTokens"`
	TotalTokens    int              `json:"totalTokens"`
}

// Phase is a contiguous span of turns between compaction events.
type Phase struct {
	Number    int `json:"number"`
	FirstTurn int `json:"firstTurn"` // -1 when the phase saw no turns
	LastTurn  int `json:"lastTurn"`
	// CompactionID is the marker that opened the phase; empty for phase 1.
	CompactionID string `json:"compactionId,omitempty"`
}

// TokenDelta is the context-window size immediately before and after one
// compaction boundary. Negative delta means context was freed.
type TokenDelta struct {
	CompactionID string `json:"compactionId"`
	Phase        int    `json:"phase"` // the phase the compaction opened
	Before       int    `json:"before"`
	After        int    `json:"after"`
	Delta        int    `json:"delta"`
}

// Result is the tracker's session-wide output.
type Result struct {
	Stats       []Stats      `json:"stats"`
	Phases      []Phase      `json:"phases"`
	Deltas      []TokenDelta `json:"deltas"`
	TurnPhase   map[int]int  `json:"turnPhase"`
	Compactions int          `json:"compactions"`
}

// Tracker computes context injections per turn. It holds only
// collaborators and static configuration — all per-session state lives in
// accumulator values threaded through the pass, so one Tracker may serve
// concurrent reconstructions.
type Tracker struct {
	cfg     sessionfs.ConfigReader
	homeDir string
	logger  *slog.Logger
}

// NewTracker builds a tracker probing candidate files through cfg.
// homeDir anchors the user-scope configuration candidates.
func NewTracker(cfg sessionfs.ConfigReader, homeDir string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{cfg: cfg, homeDir: homeDir, logger: logger}
}

// accum is the injection state carried from one turn to the next. It is
// treated as immutable: each turn copies before extending.
type accum struct {
	injections []Injection
	byID       map[string]bool
	// seenPaths dedups configuration-file probes within a phase, keyed by
	// normalized absolute path.
	seenPaths map[string]bool
}

func newAccum() accum {
	return accum{byID: make(map[string]bool), seenPaths: make(map[string]bool)}
}

func (a accum) copy() accum {
	next := accum{
		injections: append([]Injection(nil), a.injections...),
		byID:       make(map[string]bool, len(a.byID)),
		seenPaths:  make(map[string]bool, len(a.seenPaths)),
	}
	for k := range a.byID {
		next.byID[k] = true
	}
	for k := range a.seenPaths {
		next.seenPaths[k] = true
	}
	return next
}

// Track runs the phase-aware injection accounting over a grouped
// conversation. The pass is strictly forward and deterministic.
func (t *Tracker) Track(ctx context.Context, conv *conversation.Conversation) (*Result, error) {
	res := &Result{TurnPhase: make(map[int]int)}

	acc := newAccum()
	phase := 1
	firstTurn, lastTurn := -1, -1
	openingCompaction := ""
	firstTurnOfPhase := true

	// Compaction delta bookkeeping: the usage total of the last assistant
	// response seen in the current phase, and the boundary awaiting its
	// "after" side.
	var lastUsageTotal *int
	type pendingDelta struct {
		compactionID string
		phase        int
		before       *int
	}
	var pending *pendingDelta

	for _, ev := range conv.Events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if ev.Compaction != nil {
			res.Phases = append(res.Phases, Phase{
				Number:       phase,
				FirstTurn:    firstTurn,
				LastTurn:     lastTurn,
				CompactionID: openingCompaction,
			})
			pending = &pendingDelta{
				compactionID: ev.Compaction.UUID,
				phase:        phase + 1,
				before:       lastUsageTotal,
			}
			phase++
			openingCompaction = ev.Compaction.UUID
			acc = newAccum()
			firstTurnOfPhase = true
			firstTurn, lastTurn = -1, -1
			lastUsageTotal = nil
			res.Compactions++
			continue
		}

		turn := ev.Turn
		if firstTurn == -1 {
			firstTurn = turn.Index
		}
		lastTurn = turn.Index

		// The delta is computed from the first assistant usage of the new
		// phase. If that response carries no counters, the boundary gets
		// no delta — a delta is never fabricated.
		if pending != nil {
			if pending.before != nil && turn.FirstUsage != nil {
				after := turn.FirstUsage.Total()
				res.Deltas = append(res.Deltas, TokenDelta{
					CompactionID: pending.compactionID,
					Phase:        pending.phase,
					Before:       *pending.before,
					After:        after,
					Delta:        after - *pending.before,
				})
			}
			pending = nil
		}

		next, stats := t.step(ctx, acc, turn, conv, phase, firstTurnOfPhase)
		acc = next
		firstTurnOfPhase = false

		if turn.LastUsage != nil {
			total := turn.LastUsage.Total()
			lastUsageTotal = &total
		}

		res.Stats = append(res.Stats, stats)
		res.TurnPhase[turn.Index] = phase
	}

	res.Phases = append(res.Phases, Phase{
		Number:       phase,
		FirstTurn:    firstTurn,
		LastTurn:     lastTurn,
		CompactionID: openingCompaction,
	})

	return res, nil
}

// step computes one turn's injections: (previous accumulator, turn input)
// → (new accumulator, turn stats). It never mutates prev.
func (t *Tracker) step(ctx context.Context, prev accum, turn *conversation.Turn, conv *conversation.Conversation, phase int, phaseStart bool) (accum, Stats) {
	next := prev.copy()
	var added []Injection

	add := func(inj Injection) {
		if next.byID[inj.ID] {
			return
		}
		inj.Turn = turn.Index
		inj.Phase = phase
		next.byID[inj.ID] = true
		next.injections = append(next.injections, inj)
		added = append(added, inj)
	}

	// Teammate segments are split off the user text up front: their
	// content belongs to task coordination, the remainder to the user
	// message.
	teammates, userText := ExtractTeammateMessages(turn.UserText())

	// 1. Global sources enter once, at the first turn of each phase.
	if phaseStart {
		for _, path := range t.globalCandidates(conv.CWD) {
			t.probeConfig(ctx, &next, add, path)
		}
	}

	// 2. Directory-scoped sources implied by every file touched this turn.
	for _, file := range t.touchedFiles(turn, userText, conv.CWD) {
		for _, dir := range ancestorDirs(file, conv.CWD) {
			t.probeConfig(ctx, &next, add, dir+"/CLAUDE.md")
		}
	}

	// 3. Files the user explicitly mentioned.
	for _, m := range ExtractMentions(userText) {
		abs := NormalizePath(JoinPath(conv.CWD, m))
		probe, err := t.cfg.Probe(ctx, abs)
		if err != nil {
			t.logger.Warn("mentioned file probe failed", "path", abs, "error", err)
			continue
		}
		if !probe.Exists || probe.Tokens > MentionedFileTokenCap {
			continue
		}
		add(Injection{
			ID:       Identity(CategoryMentionedFile, abs),
			Category: CategoryMentionedFile,
			Label:    abs,
			Tokens:   probe.Tokens,
		})
	}

	// 4. Generic tool output, including skill instruction injections.
	toolSum := 0
	for _, lt := range turn.LinkedTools() {
		if lt.IsCoordination() {
			continue
		}
		toolSum += lt.Tokens()
	}
	if toolSum > 0 {
		add(Injection{
			ID:       turnIdentity(CategoryToolOutput, turn.Index),
			Category: CategoryToolOutput,
			Label:    "tool-output",
			Tokens:   toolSum,
		})
	}

	// 5. Task coordination: coordination-tagged tools plus inbound
	// teammate messages.
	coordSum := 0
	coordLabel := ""
	for _, lt := range turn.LinkedTools() {
		if !lt.IsCoordination() {
			continue
		}
		coordSum += lt.Tokens()
		if coordLabel == "" {
			coordLabel = lt.Recipient()
		}
	}
	for _, tm := range teammates {
		coordSum += tokens.Estimate(tm.Body)
		if coordLabel == "" && tm.From != "" {
			coordLabel = tm.From
		}
	}
	if coordSum > 0 {
		if coordLabel == "" {
			coordLabel = "coordination"
		}
		add(Injection{
			ID:       turnIdentity(CategoryTaskCoordination, turn.Index),
			Category: CategoryTaskCoordination,
			Label:    coordLabel,
			Tokens:   coordSum,
		})
	}

	// 6. The user message itself: the raw text transmitted to the model.
	if userTokens := tokens.Estimate(userText); userTokens > 0 {
		add(Injection{
			ID:       turnIdentity(CategoryUserMessage, turn.Index),
			Category: CategoryUserMessage,
			Label:    "user-message",
			Tokens:   userTokens,
		})
	}

	// 7. Internal reasoning and visible text, as two sub-totals under one
	// record.
	thinkTokens, textTokens := assistantTokens(turn)
	if thinkTokens+textTokens > 0 {
		add(Injection{
			ID:             turnIdentity(CategoryThinkingText, turn.Index),
			Category:       CategoryThinkingText,
			Label:          "thinking-text",
			Tokens:         thinkTokens + textTokens,
			ThinkingTokens: thinkTokens,
			TextTokens:     textTokens,
		})
	}

	stats := Stats{
		Turn:        turn.Index,
		Phase:       phase,
		New:         added,
		Accumulated: append([]Injection(nil), next.injections...),
	}
	stats.CategoryTokens = make(map[Category]int, len(Categories))
	for _, c := range Categories {
		stats.CategoryTokens[c] = 0
	}
	for _, inj := range next.injections {
		stats.CategoryTokens[inj.Category] += inj.Tokens
	}
	for _, c := range Categories {
		stats.TotalTokens += stats.CategoryTokens[c]
	}

	return next, stats
}

// probeConfig probes one configuration-file candidate and records it as a
// claude-md injection when present and non-empty. Every probed path is
// marked seen for the rest of the phase regardless of outcome.
func (t *Tracker) probeConfig(ctx context.Context, acc *accum, add func(Injection), path string) {
	norm := NormalizePath(path)
	if acc.seenPaths[norm] {
		return
	}
	acc.seenPaths[norm] = true

	probe, err := t.cfg.Probe(ctx, norm)
	if err != nil {
		t.logger.Warn("config file probe failed", "path", norm, "error", err)
		return
	}
	if !probe.Exists || probe.Chars == 0 {
		return
	}
	add(Injection{
		ID:       Identity(CategoryClaudeMD, norm),
		Category: CategoryClaudeMD,
		Label:    norm,
		Tokens:   probe.Tokens,
	})
}

// globalCandidates are the configuration files loaded for every session
// in this project: enterprise, user, and project scope.
func (t *Tracker) globalCandidates(cwd string) []string {
	candidates := []string{enterpriseConfigPath}
	if t.homeDir != "" {
		candidates = append(candidates, NormalizePath(t.homeDir)+"/.claude/CLAUDE.md")
	}
	if cwd != "" {
		base := NormalizePath(cwd)
		candidates = append(candidates, base+"/CLAUDE.md", base+"/CLAUDE.local.md")
	}
	return candidates
}

// touchedFiles collects every file path this turn touched: file-argument
// tool calls, user @-mentions, and meta-message file references. Paths
// are absolute and normalized.
func (t *Tracker) touchedFiles(turn *conversation.Turn, userText, cwd string) []string {
	var out []string
	seen := make(map[string]bool)
	push := func(p string) {
		if p == "" {
			return
		}
		abs := NormalizePath(JoinPath(cwd, p))
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}

	for _, lt := range turn.LinkedTools() {
		push(lt.FilePath())
	}
	for _, m := range ExtractMentions(userText) {
		push(m)
	}
	for _, meta := range turn.Meta {
		for _, ref := range ExtractMetaFileRefs(meta.PlainText()) {
			push(ref)
		}
	}
	return out
}

// ancestorDirs walks from the file's directory up to the session cwd,
// inclusive. Files outside the cwd contribute only their own directory.
func ancestorDirs(file, cwd string) []string {
	base := NormalizePath(cwd)
	dir := ParentDir(file)
	if dir == "" {
		return nil
	}
	if base == "" || !strings.HasPrefix(dir+"/", base+"/") {
		return []string{dir}
	}
	var dirs []string
	for {
		dirs = append(dirs, dir)
		if dir == base {
			break
		}
		parent := ParentDir(dir)
		if parent == "" || parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

func assistantTokens(turn *conversation.Turn) (thinking, text int) {
	for _, rec := range turn.Assistants {
		for _, b := range rec.Blocks {
			switch b.Type {
			case record.BlockThinking:
				thinking += tokens.Estimate(b.Thinking)
			case record.BlockText:
				text += tokens.Estimate(b.Text)
			}
		}
	}
	return thinking, text
}
