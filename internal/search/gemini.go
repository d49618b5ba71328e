package search

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model override is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider searches via Gemini's GoogleSearch grounding tool. URLs
// come from both the generated text and the grounding chunk metadata, which
// lists the actual sources the model consulted.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Err: err}
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) FindCandidateURLs(ctx context.Context, productName string, maxResults int) ([]string, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	prompt := searchSystemPrompt + "\n\n" + searchUserPrompt(productName, maxResults)
	resp, err := p.client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		config,
	)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	var text strings.Builder
	var grounded []string
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
					text.WriteByte('\n')
				}
			}
		}
		if cand.GroundingMetadata != nil {
			for _, chunk := range cand.GroundingMetadata.GroundingChunks {
				if chunk.Web != nil && chunk.Web.URI != "" {
					grounded = append(grounded, chunk.Web.URI)
				}
			}
		}
	}

	// Grounding sources are real fetched pages, so they go first; text URLs
	// fill the remainder up to the cap.
	combined := strings.Join(grounded, "\n") + "\n" + text.String()
	return ExtractRedditURLs(combined, maxResults), nil
}
