package contexttrack

import (
	"regexp"
	"strings"
)

var (
	mentionRe       = regexp.MustCompile(`(?:^|\s)@([^\s@]+)`)
	metaFileRe      = regexp.MustCompile(`Contents of ([^\s:]+)`)
	teammateOpenRe  = regexp.MustCompile(`<teammate-message([^>]*)>`)
	teammateCloseRe = regexp.MustCompile(`</teammate-message>`)
	teammateFromRe  = regexp.MustCompile(`from="([^"]+)"`)
)

// ExtractMentions returns the paths the user @-mentioned in text, with
// the mention marker stripped and trailing punctuation trimmed.
func ExtractMentions(text string) []string {
	matches := mentionRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		p := strings.TrimRight(m[1], ".,;:!?)")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExtractMetaFileRefs returns file paths referenced by meta messages
// ("Contents of <path>" notices the CLI injects when it loads a file).
func ExtractMetaFileRefs(text string) []string {
	matches := metaFileRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m[1] != "" {
			out = append(out, m[1])
		}
	}
	return out
}

// TeammateMessage is one inbound message from another agent, embedded in
// the user stream as a tagged segment.
type TeammateMessage struct {
	From string
	Body string
}

// ExtractTeammateMessages pulls the tagged teammate segments out of a
// user message. The second return is the text with those segments
// removed — the part the human actually typed — so teammate content is
// accounted under task coordination, not under the user message.
func ExtractTeammateMessages(text string) ([]TeammateMessage, string) {
	opens := teammateOpenRe.FindAllStringSubmatchIndex(text, -1)
	if len(opens) == 0 {
		return nil, text
	}

	var msgs []TeammateMessage
	var rest strings.Builder
	cursor := 0
	for _, loc := range opens {
		start, end := loc[0], loc[1]
		if start < cursor {
			continue
		}
		rest.WriteString(text[cursor:start])

		attrs := text[loc[2]:loc[3]]
		from := ""
		if m := teammateFromRe.FindStringSubmatch(attrs); m != nil {
			from = m[1]
		}

		bodyEnd := len(text)
		segEnd := bodyEnd
		if closing := teammateCloseRe.FindStringIndex(text[end:]); closing != nil {
			bodyEnd = end + closing[0]
			segEnd = end + closing[1]
		}
		msgs = append(msgs, TeammateMessage{From: from, Body: text[end:bodyEnd]})
		cursor = segEnd
	}
	if cursor < len(text) {
		rest.WriteString(text[cursor:])
	}
	return msgs, strings.TrimSpace(rest.String())
}
