// Package conversation partitions a decoded record stream into ordered
// turns and pairs each tool invocation with its result.
package conversation

import (
	"encoding/json"

	"github.com/MikeSquared-Agency/argus/internal/record"
	"github.com/MikeSquared-Agency/argus/internal/tokens"
)

// spawnToolName is the tool that starts a nested session.
const spawnToolName = "Task"

// skillToolName injects instruction files into the context on invocation.
const skillToolName = "Skill"

// coordinationTools is the single source of truth for which tool names
// count as multi-agent coordination overhead rather than generic tool
// output. Matching is by exact name.
var coordinationTools = map[string]bool{
	"SendMessage": true,
	"TeamCreate":  true,
	"TeamDelete":  true,
	"TaskCreate":  true,
	"TaskUpdate":  true,
	"TaskList":    true,
	"TaskGet":     true,
}

// IsCoordinationTool reports whether name belongs to the fixed
// task-coordination set.
func IsCoordinationTool(name string) bool {
	return coordinationTools[name]
}

// LinkedTool pairs a tool invocation with its result, identified by the
// invocation id. An unmatched tool (Result == nil) is not an error — the
// tool may still be running when the log is read.
type LinkedTool struct {
	ID    string
	Name  string
	Input json.RawMessage

	Use    record.Block
	Result *record.Block

	CallTokens   int
	ResultTokens int
	// SkillTokens is the instruction payload a skill invocation injects,
	// counted on top of the call and result content.
	SkillTokens int
}

// Tokens is the full context cost attributed to this invocation.
func (t *LinkedTool) Tokens() int {
	return t.CallTokens + t.ResultTokens + t.SkillTokens
}

// IsCoordination reports whether this invocation is routed to
// task-coordination accounting instead of generic tool output.
func (t *LinkedTool) IsCoordination() bool {
	return IsCoordinationTool(t.Name)
}

// IsSpawn reports whether this invocation starts a nested session.
func (t *LinkedTool) IsSpawn() bool {
	return t.Name == spawnToolName
}

// Recipient extracts a human-readable label from a coordination call's
// input: the recipient for send-type calls, falling back to the tool name.
func (t *LinkedTool) Recipient() string {
	var in struct {
		Recipient string `json:"recipient"`
		To        string `json:"to"`
		Name      string `json:"name"`
	}
	if len(t.Input) > 0 {
		if err := json.Unmarshal(t.Input, &in); err == nil {
			switch {
			case in.Recipient != "":
				return in.Recipient
			case in.To != "":
				return in.To
			case in.Name != "":
				return in.Name
			}
		}
	}
	return t.Name
}

// FilePath extracts the file argument of a file-touching tool call, if
// the input carries one under the conventional keys.
func (t *LinkedTool) FilePath() string {
	if len(t.Input) == 0 {
		return ""
	}
	var in struct {
		FilePath     string `json:"file_path"`
		Path         string `json:"path"`
		NotebookPath string `json:"notebook_path"`
	}
	if err := json.Unmarshal(t.Input, &in); err != nil {
		return ""
	}
	switch {
	case in.FilePath != "":
		return in.FilePath
	case in.NotebookPath != "":
		return in.NotebookPath
	default:
		return in.Path
	}
}

// newLinkedTool builds a LinkedTool from a tool_use block and estimates
// the call-side token cost from the serialized input.
func newLinkedTool(b record.Block) *LinkedTool {
	return &LinkedTool{
		ID:         b.ToolID,
		Name:       b.ToolName,
		Input:      b.ToolInput,
		Use:        b,
		CallTokens: tokens.EstimateBytes(b.ToolInput) + tokens.Estimate(b.ToolName),
	}
}

// attachResult pairs a tool_result block with the invocation and
// estimates the result-side token cost. Skill invocations additionally
// count their injected instructions, which arrive in the result payload.
func (t *LinkedTool) attachResult(b record.Block) {
	rb := b
	t.Result = &rb
	t.ResultTokens = tokens.Estimate(b.ResultText)
	if t.Name == skillToolName {
		t.SkillTokens = t.ResultTokens
	}
}
