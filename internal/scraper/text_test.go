package scraper

import (
	"strings"
	"testing"
)

func TestExtractTextPreservesStructure(t *testing.T) {
	html := `<html><body>
<h1>Thread title</h1>
<div class="md"><p>First comment body.</p></div>
<div class="md"><p>Second comment body.</p></div>
</body></html>`

	text, err := ExtractText([]byte(html))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	lines := strings.Split(text, "\n")
	var nonEmpty []string
	for _, l := range lines {
		if l != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) != 3 {
		t.Fatalf("got %d lines %q, want 3", len(nonEmpty), nonEmpty)
	}
	if nonEmpty[0] != "Thread title" {
		t.Errorf("first line = %q, want thread title", nonEmpty[0])
	}
}

func TestExtractTextStripsNonContent(t *testing.T) {
	html := `<html><head><style>.a{}</style></head><body>
<script>var secret = 1;</script>
<noscript>enable js</noscript>
<form><select><option>pick</option></select></form>
<p>visible text</p>
</body></html>`

	text, err := ExtractText([]byte(html))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	for _, banned := range []string{"var secret", "enable js", "pick", ".a{}"} {
		if strings.Contains(text, banned) {
			t.Errorf("text contains stripped content %q: %q", banned, text)
		}
	}
	if !strings.Contains(text, "visible text") {
		t.Errorf("text missing visible content: %q", text)
	}
}

func TestExtractTextCollapsesBlankLines(t *testing.T) {
	html := `<body><div></div><div></div><p>one</p><div></div><div></div><p>two</p></body>`

	text, err := ExtractText([]byte(html))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Errorf("blank lines not collapsed: %q", text)
	}
}

func TestExtractTextEmptyDocument(t *testing.T) {
	text, err := ExtractText([]byte(""))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}
