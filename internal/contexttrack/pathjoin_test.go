package contexttrack

import "testing"

func TestIsAbsolutePath(t *testing.T) {
	abs := []string{"/repo/a.go", "~/notes.md", "C:\\work", "c:/work", `\\server\share`}
	for _, p := range abs {
		if !IsAbsolutePath(p) {
			t.Errorf("IsAbsolutePath(%q) = false, want true", p)
		}
	}
	rel := []string{"", "a.go", "./a.go", "../a.go", "@src/main.go", "1:bad"}
	for _, p := range rel {
		if IsAbsolutePath(p) {
			t.Errorf("IsAbsolutePath(%q) = true, want false", p)
		}
	}
}

func TestJoinPath(t *testing.T) {
	cases := []struct {
		base, rel, want string
	}{
		{"/repo", "src/main.go", "/repo/src/main.go"},
		{"/repo", "./src/main.go", "/repo/src/main.go"},
		{"/repo", "@src/main.go", "/repo/src/main.go"},
		{"/repo/sub", "../other/x.go", "/repo/other/x.go"},
		{"/repo", "/abs/path.go", "/abs/path.go"},
		{"/repo", "~/notes.md", "~/notes.md"},
		{"/repo/a/b", "../../x", "/repo/x"},
		{"/repo/", "a.go", "/repo/a.go"},

		// Mixed separator styles: rel normalized, output in base's style.
		{`C:\work\proj`, "src/main.go", `C:\work\proj\src\main.go`},
		{`C:\work\proj`, `..\other`, `C:\work\other`},
		{"/repo", `src\main.go`, "/repo/src/main.go"},

		// Clamp: ".." never pops past one root segment.
		{"/repo", "../../../x", "/repo/x"},
		{"/", "../x", "/x"},
		{`\\server\share`, "../../x", `\\server\x`},
		{"~/proj", "../../x", "~/proj/x"},
		{"C:/work", "../x", "C:/work/x"},

		// Bare ".." with nothing after it.
		{"/repo/sub", "..", "/repo"},
	}
	for _, c := range cases {
		if got := JoinPath(c.base, c.rel); got != c.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", c.base, c.rel, got, c.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{`C:\work\proj`, "C:/work/proj"},
		{"/repo/sub/", "/repo/sub"},
		{"/", "/"},
		{"/repo//", "/repo"},
		{`\\server\share\`, "//server/share"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	// Separator style never changes identity.
	if NormalizePath(`C:\a\b`) != NormalizePath("C:/a/b") {
		t.Error("same path in two styles must normalize identically")
	}

	// Idempotence.
	for _, p := range []string{"/repo/sub", "C:/work", "//server/share"} {
		if NormalizePath(NormalizePath(p)) != NormalizePath(p) {
			t.Errorf("NormalizePath not idempotent for %q", p)
		}
	}
}

func TestParentDir(t *testing.T) {
	cases := []struct{ in, want string }{
		{"/repo/sub/a.go", "/repo/sub"},
		{"/repo", "/"},
		{"/", ""},
		{"a.go", ""},
		{`C:\work\x.go`, "C:/work"},
	}
	for _, c := range cases {
		if got := ParentDir(c.in); got != c.want {
			t.Errorf("ParentDir(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
