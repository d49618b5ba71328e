package search

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model override is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider searches via the Claude server-side web_search tool,
// constrained to Reddit domains so the model cannot wander off-site.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) FindCandidateURLs(ctx context.Context, productName string, maxResults int) ([]string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: searchSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(searchUserPrompt(productName, maxResults))),
		},
		Tools: []anthropic.ToolUnionParam{
			{
				OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{
					AllowedDomains: []string{"reddit.com", "redd.it"},
					MaxUses:        anthropic.Int(8),
				},
			},
		},
	})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			text.WriteByte('\n')
		}
	}

	return ExtractRedditURLs(text.String(), maxResults), nil
}
