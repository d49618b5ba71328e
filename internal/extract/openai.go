package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the extraction model when none is configured. A small
// model suffices; the task is reading comprehension, not search.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxPageChars truncates page text before the prompt so one
// megathread cannot blow the context window.
const DefaultMaxPageChars = 48000

// OpenAIExtractor implements Extractor over the OpenAI chat API with
// JSON-object response formatting.
type OpenAIExtractor struct {
	client       *openai.Client
	model        string
	maxPageChars int
}

func NewOpenAI(apiKey, model string) *OpenAIExtractor {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIExtractor{
		client:       openai.NewClient(apiKey),
		model:        model,
		maxPageChars: DefaultMaxPageChars,
	}
}

const extractSystemPrompt = "You analyze Reddit page text and identify users who demonstrably " +
	"use a given product. Only include users whose own words show usage " +
	"(\"I use\", \"we run\", \"switched to\", etc). Mentions, questions or " +
	"criticism without usage do not count. Respond with JSON only."

type extractResponse struct {
	Users []struct {
		Username string `json:"username"`
		Evidence string `json:"evidence"`
	} `json:"users"`
}

func (e *OpenAIExtractor) ExtractUsers(ctx context.Context, productName, pageText string) ([]User, error) {
	if len(pageText) > e.maxPageChars {
		pageText = pageText[:e.maxPageChars]
	}

	prompt := fmt.Sprintf(
		"Product: %s\n\n"+
			"Page text follows. Identify every Reddit user who demonstrably uses this product.\n"+
			"Return JSON: {\"users\": [{\"username\": \"name_without_u_prefix\", \"evidence\": \"their exact quote\"}]}\n"+
			"Return {\"users\": []} if none qualify.\n\n"+
			"---\n%s",
		productName, pageText,
	)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ExtractionError{Err: errors.New("empty completion")}
	}

	return ParseUsers(resp.Choices[0].Message.Content)
}

// ParseUsers decodes the model's JSON into cleaned, deduplicated users.
// Undecodable output yields an ExtractionError; a well-formed empty list
// yields nil users and no error.
func ParseUsers(raw string) ([]User, error) {
	// Some models wrap JSON in a markdown fence despite instructions.
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")

	var decoded extractResponse
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, &ExtractionError{Raw: raw, Err: err}
	}

	var users []User
	for _, u := range decoded.Users {
		name := CleanUsername(u.Username)
		if name == "" {
			continue
		}
		users = append(users, User{
			Username:     name,
			ProfileURL:   ProfileURL(name),
			EvidenceText: strings.TrimSpace(u.Evidence),
		})
	}
	return Dedupe(users), nil
}
