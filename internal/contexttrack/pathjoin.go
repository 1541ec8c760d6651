package contexttrack

import "strings"

// The path-join rule. Paths in the log mix separator styles (local runs,
// remote SSH runs against Windows hosts), so joining and identity
// comparison cannot go through the host's filepath package.

// IsAbsolutePath reports whether p stands on its own: rooted, home-relative,
// drive-lettered, or UNC.
func IsAbsolutePath(p string) bool {
	if p == "" {
		return false
	}
	if p[0] == '/' || p[0] == '~' {
		return true
	}
	if len(p) >= 2 && p[1] == ':' && isASCIIAlpha(p[0]) {
		return true
	}
	return strings.HasPrefix(p, `\\`)
}

// JoinPath resolves rel against base. An absolute rel is returned as-is.
// A relative rel may begin with "@" (mention marker, stripped), "./"
// (stripped), or one or more "../" — each pops a trailing segment off
// base, clamping at one root segment (never an error). Separators are
// normalized to base's own style before joining.
func JoinPath(base, rel string) string {
	if IsAbsolutePath(rel) {
		return rel
	}
	sep := separatorOf(base)

	// Work internally on forward slashes regardless of source style.
	r := strings.TrimPrefix(rel, "@")
	r = strings.ReplaceAll(r, `\`, "/")
	r = strings.TrimPrefix(r, "./")

	root, segs := splitBase(base)
	for {
		if r == ".." {
			r = ""
		} else if strings.HasPrefix(r, "../") {
			r = r[3:]
		} else {
			break
		}
		if len(segs) > 1 {
			segs = segs[:len(segs)-1]
		}
	}

	joined := root + strings.Join(segs, "/")
	if r != "" {
		if !strings.HasSuffix(joined, "/") {
			joined += "/"
		}
		joined += r
	}
	if sep == '\\' {
		joined = strings.ReplaceAll(joined, "/", `\`)
	}
	return joined
}

// NormalizePath converts p to the canonical identity form: forward-slash
// separators, no trailing separator. Two paths that normalize to the same
// string are the same path regardless of the separator style used in the
// source text.
func NormalizePath(p string) string {
	n := strings.ReplaceAll(p, `\`, "/")
	for len(n) > 1 && strings.HasSuffix(n, "/") {
		n = n[:len(n)-1]
	}
	return n
}

// ParentDir returns the normalized directory containing p, or "" when p
// has no parent.
func ParentDir(p string) string {
	n := NormalizePath(p)
	i := strings.LastIndex(n, "/")
	if i <= 0 {
		if i == 0 && len(n) > 1 {
			return "/"
		}
		return ""
	}
	return n[:i]
}

// separatorOf picks the separator style base itself uses.
func separatorOf(base string) byte {
	if strings.ContainsRune(base, '\\') && !strings.ContainsRune(base, '/') {
		return '\\'
	}
	return '/'
}

// splitBase breaks base into a root prefix and its segments, normalized
// to forward slashes. The root prefix ("/", "C:/", "//" for UNC, or ""
// for a bare relative base) is never popped by "../".
func splitBase(base string) (root string, segs []string) {
	b := strings.ReplaceAll(base, `\`, "/")
	for len(b) > 1 && strings.HasSuffix(b, "/") {
		b = b[:len(b)-1]
	}

	switch {
	case strings.HasPrefix(b, "//"):
		root, b = "//", b[2:]
	case strings.HasPrefix(b, "/"):
		root, b = "/", b[1:]
	case len(b) >= 2 && b[1] == ':' && isASCIIAlpha(b[0]):
		root = b[:2] + "/"
		b = strings.TrimPrefix(b[2:], "/")
	case strings.HasPrefix(b, "~"):
		rest := strings.TrimPrefix(strings.TrimPrefix(b, "~"), "/")
		root, b = "~/", rest
	}

	if b == "" {
		return root, nil
	}
	return root, strings.Split(b, "/")
}

func isASCIIAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
