// Package analyzer scans scraped page text for product mentions. Pages
// with zero mentions skip the extraction stage entirely, which saves an
// LLM call per dead page.
package analyzer

import (
	"strings"
	"unicode"
)

// Mention summarizes how a product shows up in one page's text.
type Mention struct {
	Product   string   `json:"product"`
	URL       string   `json:"url"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// MaxSentences caps how many evidence sentences a Mention carries so a
// megathread does not balloon the record.
const MaxSentences = 20

// Analyze counts case-insensitive occurrences of productName in text and
// collects the sentences containing them. A zero Count means the page
// never mentions the product.
func Analyze(text, pageURL, productName string) Mention {
	m := Mention{Product: productName, URL: pageURL}
	if text == "" || productName == "" {
		return m
	}

	lowerTerm := strings.ToLower(productName)
	m.Count = strings.Count(strings.ToLower(text), lowerTerm)
	if m.Count == 0 {
		return m
	}

	for _, s := range splitSentences(text) {
		if strings.Contains(strings.ToLower(s), lowerTerm) {
			m.Sentences = append(m.Sentences, s)
			if len(m.Sentences) == MaxSentences {
				break
			}
		}
	}
	return m
}

// splitSentences breaks text on sentence-ending punctuation and line
// breaks, keeping the delimiter. Reddit comments often lack terminal
// punctuation, so newlines count as boundaries too.
func splitSentences(text string) []string {
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}
	sentences := make([]string, 0, estimated)

	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i, r := range text {
		switch r {
		case '.', '!', '?':
			end := i + 1
			for end < len(text) && unicode.IsSpace(rune(text[end])) && text[end] != '\n' {
				end++
			}
			flush(end)
		case '\n':
			flush(i + 1)
		}
	}
	flush(len(text))

	return sentences
}
