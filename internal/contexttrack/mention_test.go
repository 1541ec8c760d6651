package contexttrack

import (
	"reflect"
	"testing"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"look at @src/main.go please", []string{"src/main.go"}},
		{"@README.md", []string{"README.md"}},
		{"check @a.go and @b.go.", []string{"a.go", "b.go"}},
		{"trailing punctuation @pkg/x.go, then more", []string{"pkg/x.go"}},
		{"email me user@example.com", nil},
		{"no mentions here", nil},
		{"@~/notes.md works too", []string{"~/notes.md"}},
	}
	for _, c := range cases {
		got := ExtractMentions(c.text)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ExtractMentions(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestExtractMetaFileRefs(t *testing.T) {
	got := ExtractMetaFileRefs("Contents of /repo/CLAUDE.md (project instructions)")
	if !reflect.DeepEqual(got, []string{"/repo/CLAUDE.md"}) {
		t.Errorf("refs = %v", got)
	}
	if refs := ExtractMetaFileRefs("nothing loaded"); refs != nil {
		t.Errorf("refs = %v, want none", refs)
	}
}

func TestExtractTeammateMessages(t *testing.T) {
	text := `please review this <teammate-message from="researcher">the cache is stale</teammate-message> and reply`

	msgs, rest := ExtractTeammateMessages(text)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].From != "researcher" || msgs[0].Body != "the cache is stale" {
		t.Errorf("message = %+v", msgs[0])
	}
	if rest != "please review this  and reply" {
		t.Errorf("rest = %q", rest)
	}
}

func TestExtractTeammateMessages_UnterminatedAndPlain(t *testing.T) {
	msgs, rest := ExtractTeammateMessages(`<teammate-message from="lead">do the thing`)
	if len(msgs) != 1 || msgs[0].Body != "do the thing" {
		t.Errorf("unterminated segment: %+v", msgs)
	}
	if rest != "" {
		t.Errorf("rest = %q, want empty", rest)
	}

	msgs, rest = ExtractTeammateMessages("just a normal prompt")
	if msgs != nil || rest != "just a normal prompt" {
		t.Errorf("plain text altered: %v %q", msgs, rest)
	}
}
