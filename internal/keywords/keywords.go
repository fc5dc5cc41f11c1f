// Package keywords suggests post tags by sending the body text to an
// OpenAI-compatible chat completion endpoint. Without an API key the
// feature is disabled and everything else keeps working.
package keywords

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/starford/ansuz/internal/apperr"
)

const systemPrompt = "You extract keywords from blog post text. " +
	"Reply with a comma-separated list of at most %d short lowercase keywords " +
	"suitable as Jekyll post tags. No explanations, no numbering."

// maxBodyChars bounds how much body text is sent upstream.
const maxBodyChars = 8000

// DefaultMax is the keyword count requested when the caller passes 0.
const DefaultMax = 5

// Suggester calls the keyword extraction API.
type Suggester struct {
	client *openai.Client
	model  string
}

// NewSuggester builds a suggester from credentials. An empty apiKey returns
// a disabled suggester; baseURL and model fall back to the client defaults.
func NewSuggester(apiKey, baseURL, model string) *Suggester {
	if apiKey == "" {
		return &Suggester{}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Suggester{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Enabled reports whether credentials were provided.
func (s *Suggester) Enabled() bool { return s.client != nil }

// Suggest returns up to max tag suggestions for the body text. It blocks for
// the duration of one request; failures surface as errors and leave no state
// behind.
func (s *Suggester) Suggest(ctx context.Context, body string, max int) ([]string, error) {
	if !s.Enabled() {
		return nil, apperr.ErrKeywordsDisabled
	}
	if max <= 0 {
		max = DefaultMax
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, max)},
			{Role: openai.ChatMessageRoleUser, Content: body},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("keywords: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("keywords: empty response")
	}
	return parseKeywords(resp.Choices[0].Message.Content, max), nil
}

// parseKeywords splits a model reply on commas and newlines, trimming list
// markers and dropping empties.
func parseKeywords(reply string, max int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		kw := strings.TrimSpace(part)
		kw = strings.TrimLeft(kw, "-*0123456789. ")
		kw = strings.Trim(kw, `"'`)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == max {
			break
		}
	}
	return out
}
