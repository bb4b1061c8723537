package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Prompt is the bounded context handed to a generative model.
type Prompt struct {
	Restaurant  string
	Locale      string
	MenuSummary string
	Question    string
}

type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

var ErrEmptyCompletion = errors.New("generator returned no text")

// OpenAIGenerator talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	url    string
	key    string
	model  string
	client *http.Client
}

func NewOpenAIGenerator(url, key, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		url:    url,
		key:    key,
		model:  model,
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func systemPrompt(p Prompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the ordering assistant of %s. ", p.Restaurant)
	fmt.Fprintf(&b, "Reply briefly in the language with code %q. ", p.Locale)
	b.WriteString("Only recommend items from this menu and never invent prices.\n\nMenu:\n")
	b.WriteString(p.MenuSummary)
	return b.String()
}

func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(p)},
			{Role: "user", Content: p.Question},
		},
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.key)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generator request: %w", err)
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generator response: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("generator returned %d: %s", resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
