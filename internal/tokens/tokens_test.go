package tokens

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"fix the auth bug", 4},
	}
	for _, c := range cases {
		if got := Estimate(c.in); got != c.want {
			t.Errorf("Estimate(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimateBytesAndFromChars(t *testing.T) {
	if got := EstimateBytes([]byte("abcdefgh")); got != 2 {
		t.Errorf("EstimateBytes = %d, want 2", got)
	}
	if got := EstimateBytes(nil); got != 0 {
		t.Errorf("EstimateBytes(nil) = %d", got)
	}
	if got := FromChars(9); got != 3 {
		t.Errorf("FromChars(9) = %d, want 3", got)
	}
	if got := FromChars(-1); got != 0 {
		t.Errorf("FromChars(-1) = %d", got)
	}
}
