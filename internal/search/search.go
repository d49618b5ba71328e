// Package search finds candidate Reddit URLs for a product using the
// web-search capability of LLM vendors. Each vendor sits behind the
// Provider interface; providers are only constructed when their API key is
// configured, so the orchestrator never branches on vendor identity.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Provider abstracts one LLM vendor's web-search-augmented completion API.
// FindCandidateURLs treats maxResults as an upper bound; providers may
// return fewer. Results are filtered to Reddit URLs before returning.
type Provider interface {
	Name() string
	FindCandidateURLs(ctx context.Context, productName string, maxResults int) ([]string, error)
}

// ProviderError marks a recoverable provider-level failure (auth, quota,
// network). The workflow logs it and continues with the other providers.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config selects and configures providers. An empty key disables the
// provider entirely; it is not attempted and not counted as failed.
type Config struct {
	OpenAIKey      string
	OpenAIModel    string
	GeminiKey      string
	GeminiModel    string
	AnthropicKey   string
	AnthropicModel string
}

// Configured builds the provider list in a fixed order (openai, gemini,
// anthropic) so downstream aggregation is deterministic. Providers whose
// key is absent or whose client fails to construct are skipped.
func Configured(ctx context.Context, cfg Config, logger *slog.Logger) []Provider {
	if logger == nil {
		logger = slog.Default()
	}

	var providers []Provider

	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel))
	} else {
		logger.Debug("search provider disabled, no api key", "provider", "openai")
	}

	if cfg.GeminiKey != "" {
		p, err := NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("skipping gemini provider", "err", err)
		} else {
			providers = append(providers, p)
		}
	} else {
		logger.Debug("search provider disabled, no api key", "provider", "gemini")
	}

	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel))
	} else {
		logger.Debug("search provider disabled, no api key", "provider", "anthropic")
	}

	return providers
}

var (
	redditURLRe  = regexp.MustCompile(`https?://(?:[a-z]+\.)?reddit\.com/[^\s)\]">]+`)
	redditBareRe = regexp.MustCompile(`(?:^|\s)((?:[a-z]+\.)?reddit\.com/[^\s)\]">]+)`)
	reddItRe     = regexp.MustCompile(`https?://redd\.it/[^\s)\]">]+`)
)

// ExtractRedditURLs pulls Reddit URLs out of free-form model output,
// trimming trailing punctuation and deduplicating while preserving order.
// max <= 0 means no cap.
func ExtractRedditURLs(text string, max int) []string {
	seen := make(map[string]struct{})
	var urls []string

	add := func(raw string) {
		raw = strings.TrimRight(raw, ".,;!?)\"'")
		if raw == "" {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		urls = append(urls, raw)
	}

	for _, m := range redditURLRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range reddItRe.FindAllString(text, -1) {
		add(m)
	}
	// Models occasionally list URLs without the scheme.
	for _, m := range redditBareRe.FindAllStringSubmatch(text, -1) {
		add("https://" + m[1])
	}

	if max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	return urls
}

const searchSystemPrompt = "You find Reddit URLs about a product. " +
	"Use web search. Return only URLs on reddit.com (including www/old/new) or redd.it. " +
	"Prefer direct post/comment URLs. Avoid login pages and non-Reddit domains."

func searchUserPrompt(productName string, maxResults int) string {
	return fmt.Sprintf(
		"Find Reddit URLs where users discuss or mention the product %q.\n\n"+
			"Use web search queries like:\n"+
			"- site:reddit.com %s\n"+
			"- %q reddit\n\n"+
			"Requirements:\n"+
			"- Return only reddit.com URLs (including www/old/new).\n"+
			"- Prefer /r/*/comments/* and direct discussion threads.\n"+
			"- Do NOT invent URLs. Only return URLs that appear in actual web search results.\n"+
			"- Provide up to %d unique URLs.\n\n"+
			"Output as a plain list of URLs, one per line.",
		productName, productName, productName, maxResults,
	)
}
