package app

import "testing"

func TestNormalizeServerURL(t *testing.T) {
	got, err := NormalizeServerURL("http://localhost:5001/")
	if err != nil {
		t.Fatalf("NormalizeServerURL: %v", err)
	}
	if got != "http://localhost:5001" {
		t.Fatalf("trailing slash not trimmed, got %q", got)
	}

	for _, bad := range []string{"", "ws://localhost:5001", "http://"} {
		if _, err := NormalizeServerURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.2.0", 0},
		{"v1.2.0", "1.2.0", 0},
		{"1.3.0", "1.2.9", 1},
		{"0.9.0", "1.0.0", -1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Fatalf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
