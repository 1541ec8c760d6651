package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// rawLine mirrors the wire shape of one log line. Fields the engine does
// not recognize stay inside Raw on the decoded record.
type rawLine struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	UUID             string          `json:"uuid"`
	ParentUUID       *string         `json:"parentUuid"`
	SessionID        string          `json:"sessionId"`
	Timestamp        string          `json:"timestamp"`
	CWD              string          `json:"cwd"`
	GitBranch        string          `json:"gitBranch"`
	IsSidechain      bool            `json:"isSidechain"`
	IsMeta           bool            `json:"isMeta"`
	IsCompactSummary bool            `json:"isCompactSummary"`
	Message          *rawMessage     `json:"message"`
	Content          json.RawMessage `json:"content"` // system records carry content at top level
}

type rawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *Usage          `json:"usage"`
}

type rawBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

// recognizedKinds is the closed set of wire types this engine interprets.
var recognizedKinds = map[string]Kind{
	"user":                  KindUser,
	"assistant":             KindAssistant,
	"system":                KindSystem,
	"summary":               KindSummary,
	"file-history-snapshot": KindFileHistorySnapshot,
	"queue-operation":       KindQueueOperation,
}

// ParseLine decodes a single log line. A nil record with a non-nil
// diagnostic means the line was skipped.
func ParseLine(line []byte, lineNo int) (*LogRecord, *Diagnostic) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw rawLine
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &Diagnostic{Line: lineNo, Reason: fmt.Sprintf("malformed json: %v", err)}
	}

	kind, ok := recognizedKinds[raw.Type]
	if !ok {
		return nil, &Diagnostic{Line: lineNo, Reason: fmt.Sprintf("unrecognized record type %q", raw.Type)}
	}

	// Compaction boundaries hide behind two wire shapes.
	if kind == KindSystem && raw.Subtype == "compact_boundary" {
		kind = KindCompaction
	}
	if kind == KindUser && raw.IsCompactSummary {
		kind = KindCompaction
	}

	rec := &LogRecord{
		Kind:             kind,
		UUID:             raw.UUID,
		SessionID:        raw.SessionID,
		CWD:              raw.CWD,
		GitBranch:        raw.GitBranch,
		Subtype:          raw.Subtype,
		IsSidechain:      raw.IsSidechain,
		IsMeta:           raw.IsMeta,
		IsCompactSummary: raw.IsCompactSummary,
		Raw:              append(json.RawMessage(nil), trimmed...),
	}
	if raw.ParentUUID != nil {
		rec.ParentUUID = *raw.ParentUUID
	}
	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
			rec.Timestamp = ts
		}
	}

	content := raw.Content
	if raw.Message != nil {
		rec.Role = raw.Message.Role
		rec.Model = raw.Message.Model
		if raw.Message.Usage != nil && !raw.Message.Usage.IsZero() {
			u := *raw.Message.Usage
			rec.Usage = &u
		}
		content = raw.Message.Content
	}
	rec.Text, rec.Blocks = decodeContent(content)

	return rec, nil
}

// decodeContent maps message content — a plain string or an array of
// loosely-typed blocks — onto the closed block variant set. Unrecognized
// block shapes become BlockUnknown and are preserved verbatim.
func decodeContent(content json.RawMessage) (string, []Block) {
	if len(content) == 0 {
		return "", nil
	}

	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return plain, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(content, &raws); err != nil {
		return "", nil
	}

	blocks := make([]Block, 0, len(raws))
	for _, rb := range raws {
		var b rawBlock
		if err := json.Unmarshal(rb, &b); err != nil {
			blocks = append(blocks, Block{Type: BlockUnknown, Raw: rb})
			continue
		}
		switch b.Type {
		case "text":
			blocks = append(blocks, Block{Type: BlockText, Text: b.Text, Raw: rb})
		case "thinking":
			blocks = append(blocks, Block{Type: BlockThinking, Thinking: b.Thinking, Raw: rb})
		case "tool_use":
			blocks = append(blocks, Block{
				Type:      BlockToolUse,
				ToolID:    b.ID,
				ToolName:  b.Name,
				ToolInput: b.Input,
				Raw:       rb,
			})
		case "tool_result":
			blocks = append(blocks, Block{
				Type:       BlockToolResult,
				ToolID:     b.ToolUseID,
				ResultText: flattenResult(b.Content),
				IsError:    b.IsError,
				Raw:        rb,
			})
		default:
			blocks = append(blocks, Block{Type: BlockUnknown, Raw: rb})
		}
	}
	return "", blocks
}

// flattenResult extracts the textual payload of a tool_result content
// field, which arrives either as a string or as an array of text blocks.
func flattenResult(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return plain
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return string(content)
	}
	var out string
	for _, p := range parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// ParseAll decodes every line of a session log. Malformed lines become
// diagnostics; they never abort the remaining file. The scanner buffer is
// sized for the large inline tool outputs these files carry.
func ParseAll(r io.Reader) ([]*LogRecord, []Diagnostic, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer

	var records []*LogRecord
	var diags []Diagnostic
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rec, diag := ParseLine(scanner.Bytes(), lineNo)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, diags, fmt.Errorf("scan: %w", err)
	}
	return records, diags, nil
}
