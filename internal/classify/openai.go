package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the minimal surface needed from an OpenAI-compatible SDK so
// that local and hosted backends are interchangeable in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider classifies via an OpenAI-compatible chat endpoint by asking
// the model for a strict JSON verdict. It exists for deployments without a
// dedicated sequence-classification service.
type OpenAIProvider struct {
	Client ChatClient
	Model  string
}

var _ Provider = (*OpenAIProvider)(nil)

const classifySystemPrompt = "You label a news text as REAL or FAKE. " +
	"Respond with strict JSON only, a single object of the form " +
	`{"label":"REAL"|"FAKE","confidence":<number between 0 and 1>}. ` +
	"No prose, no markdown fences."

type chatVerdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (p *OpenAIProvider) Classify(ctx context.Context, text string) (Result, error) {
	resp, err := p.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.Model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return Result{}, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: chat response has no choices", ErrMalformed)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")

	var verdict chatVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return Result{}, fmt.Errorf("%w: decode chat verdict %q: %v", ErrMalformed, content, err)
	}
	if verdict.Label == "" {
		return Result{}, fmt.Errorf("%w: chat verdict carries no label", ErrMalformed)
	}
	return Result{RawLabel: verdict.Label, RawScore: verdict.Confidence}, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthFailure, err)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway:
			return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
