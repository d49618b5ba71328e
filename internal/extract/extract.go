// Package extract turns scraped page text into structured user evidence
// via an LLM call constrained to JSON output.
package extract

import (
	"context"
	"fmt"
	"strings"
)

// User is one Reddit user extracted from a page, with the snippet that
// shows they actually use the product.
type User struct {
	Username     string `json:"username"`
	ProfileURL   string `json:"profile_url"`
	EvidenceText string `json:"evidence"`
}

// Extractor asks a model which users on the page demonstrably use the
// product. Implementations must tolerate arbitrary page text.
type Extractor interface {
	ExtractUsers(ctx context.Context, productName, pageText string) ([]User, error)
}

// ExtractionError marks malformed model output. The workflow records
// zero users for the page and continues.
type ExtractionError struct {
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction output unusable: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// CleanUsername strips Reddit decoration (u/ prefix, whitespace) and
// rejects placeholder accounts. Returns "" when the name is unusable.
func CleanUsername(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "/u/")
	name = strings.TrimPrefix(name, "u/")
	name = strings.Trim(name, "[]")
	switch strings.ToLower(name) {
	case "", "deleted", "removed", "automoderator", "unknown":
		return ""
	}
	if strings.ContainsAny(name, " \t\n/") {
		return ""
	}
	return name
}

// ProfileURL builds the canonical profile link for a username.
func ProfileURL(username string) string {
	return "https://www.reddit.com/user/" + username
}

// Dedupe collapses users by case-insensitive username, keeping the
// first occurrence (which carries the first evidence snippet).
func Dedupe(users []User) []User {
	seen := make(map[string]struct{}, len(users))
	out := users[:0]
	for _, u := range users {
		key := strings.ToLower(u.Username)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}
