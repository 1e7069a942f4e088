package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InferenceProvider talks to an inference-API style backend:
// POST {text} -> {label, confidence} or {label, score} depending on the
// service generation. Both field spellings are tolerated.
type InferenceProvider struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

var _ Provider = (*InferenceProvider)(nil)

type inferenceRequest struct {
	Text string `json:"text"`
}

type inferenceResponse struct {
	Label         string   `json:"label"`
	Confidence    *float64 `json:"confidence"`
	Score         *float64 `json:"score"`
	Error         string   `json:"error"`
	EstimatedTime float64  `json:"estimated_time"`
}

func (p *InferenceProvider) Classify(ctx context.Context, text string) (Result, error) {
	payload, err := json.Marshal(inferenceRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal request: %v", ErrMalformed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		// Connection-level failures look identical to a service that is
		// still binding its port during cold start.
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrMalformed, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, fmt.Errorf("%w: status %d", ErrAuthFailure, resp.StatusCode)
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		return Result{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrMalformed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded inferenceResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrMalformed, err)
	}
	if decoded.Error != "" {
		if strings.Contains(strings.ToLower(decoded.Error), "loading") {
			return Result{}, fmt.Errorf("%w: %s (estimated %.0fs)", ErrServiceUnavailable, decoded.Error, decoded.EstimatedTime)
		}
		return Result{}, fmt.Errorf("%w: %s", ErrMalformed, decoded.Error)
	}
	if decoded.Label == "" {
		return Result{}, fmt.Errorf("%w: response carries no label", ErrMalformed)
	}

	score := 0.0
	switch {
	case decoded.Confidence != nil:
		score = *decoded.Confidence
	case decoded.Score != nil:
		score = *decoded.Score
	}
	return Result{RawLabel: decoded.Label, RawScore: score}, nil
}

func (p *InferenceProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
