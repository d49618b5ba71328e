package search

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the web-search-capable chat model used when no
// model override is configured.
const DefaultOpenAIModel = "gpt-4o-search-preview"

// OpenAIProvider searches via OpenAI's search-preview chat models, which
// ground their completions in live web results.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) FindCandidateURLs(ctx context.Context, productName string, maxResults int) ([]string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: searchSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: searchUserPrompt(productName, maxResults)},
		},
	})
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("empty completion")}
	}

	return ExtractRedditURLs(resp.Choices[0].Message.Content, maxResults), nil
}
