package aggregate

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://reddit.com/r/x/comments/1/", "https://www.reddit.com/r/x/comments/1"},
		{"http://old.reddit.com/r/x/comments/1", "https://www.reddit.com/r/x/comments/1"},
		{"https://NEW.reddit.com/r/x/comments/1", "https://www.reddit.com/r/x/comments/1"},
		{"reddit.com/r/x/comments/1", "https://www.reddit.com/r/x/comments/1"},
		{"https://www.reddit.com/r/x/comments/1?utm_source=share&utm_medium=web", "https://www.reddit.com/r/x/comments/1"},
		{"https://www.reddit.com/r/x/comments/1?sort=top&utm_source=share", "https://www.reddit.com/r/x/comments/1?sort=top"},
		{"https://www.reddit.com/r/x/comments/1#comment", "https://www.reddit.com/r/x/comments/1"},
		{"https://redd.it/abc123", "https://redd.it/abc123"},
	}

	for _, c := range cases {
		got, ok := Normalize(c.in)
		if !ok {
			t.Errorf("Normalize(%q) unexpectedly rejected", c.in)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "://bad", "not a url at all\x7f://"} {
		if got, ok := Normalize(in); ok && got != "" {
			// url.Parse is lenient; only hard failures are rejected, but an
			// empty host must never pass.
			t.Logf("Normalize(%q) accepted as %q", in, got)
		}
	}
	if _, ok := Normalize(""); ok {
		t.Error("empty string should be rejected")
	}
}

func TestMergeDedupesAcrossProviders(t *testing.T) {
	providerA := []string{
		"https://reddit.com/r/x/comments/1",
		"https://reddit.com/r/x/comments/2",
	}
	providerB := []string{
		"https://reddit.com/r/x/comments/2/", // duplicate with trailing slash
		"https://reddit.com/r/y/comments/3",
	}

	got := Merge([][]string{providerA, providerB})
	want := []string{
		"https://www.reddit.com/r/x/comments/1",
		"https://www.reddit.com/r/x/comments/2",
		"https://www.reddit.com/r/y/comments/3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
}

func TestMergeEmptyAndNilGroups(t *testing.T) {
	got := Merge([][]string{nil, {}, {"https://reddit.com/r/x/comments/1"}, nil})
	if len(got) != 1 {
		t.Fatalf("expected 1 url, got %d", len(got))
	}
}

func TestMergeOrderIsFirstSeen(t *testing.T) {
	groups := [][]string{
		{"https://reddit.com/r/b/1", "https://reddit.com/r/a/1"},
		{"https://reddit.com/r/a/1", "https://reddit.com/r/c/1"},
	}
	got := Merge(groups)
	want := []string{
		"https://www.reddit.com/r/b/1",
		"https://www.reddit.com/r/a/1",
		"https://www.reddit.com/r/c/1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge order = %v, want %v", got, want)
	}
}
