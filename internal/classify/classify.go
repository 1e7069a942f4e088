// Package classify sends prepared text to a remote classification model and
// translates the raw response into the canonical label space. The remote
// model is a black box selected at configuration time; its label vocabulary
// and score scale vary between providers and even between versions of the
// same model, so both are normalized here and nowhere else.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrServiceUnavailable is the cold-start signal: the model exists but
	// is still loading. The only retryable failure class.
	ErrServiceUnavailable = errors.New("classification model is warming up")
	// ErrAuthFailure covers rejected credentials. Never retried.
	ErrAuthFailure = errors.New("classification service rejected credentials")
	// ErrMalformed covers requests or responses the contract cannot
	// represent. Never retried.
	ErrMalformed = errors.New("malformed classification exchange")
)

// Label is the canonical verdict vocabulary, independent of any model's raw
// label space.
type Label string

const (
	LabelReal      Label = "Real"
	LabelFake      Label = "Fake"
	LabelSatire    Label = "Satire"
	LabelUncertain Label = "Uncertain"
)

// Result is the remote model's response before label mapping, as returned by
// a Provider.
type Result struct {
	RawLabel string
	RawScore float64
}

// Outcome is the mapped, scale-normalized classification.
type Outcome struct {
	Label      Label
	Confidence float64
}

// LabelTable maps a model's raw label vocabulary onto canonical labels. The
// table is pinned in configuration per model version; the index-to-meaning
// mapping of positional labels has been observed to invert between versions,
// so it is never inferred.
type LabelTable map[string]Label

// Map translates a raw label. Unknown labels map to Uncertain.
func (t LabelTable) Map(raw string) Label {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return LabelUncertain
	}
	if label, ok := t[key]; ok {
		return label
	}
	return LabelUncertain
}

// DefaultLabelTable matches the verinews-roberta head, which emits REAL/FAKE
// directly and LABEL_0/LABEL_1 positionally (index 0 = fake).
func DefaultLabelTable() LabelTable {
	return LabelTable{
		"REAL":    LabelReal,
		"TRUE":    LabelReal,
		"LABEL_1": LabelReal,
		"1":       LabelReal,
		"FAKE":    LabelFake,
		"FALSE":   LabelFake,
		"LABEL_0": LabelFake,
		"0":       LabelFake,
	}
}

// NormalizeScore maps a raw model score onto the 0-100 scale. Scores at or
// below 1.0 are treated as fractions and scaled by 100; anything above is
// already percentage-scaled. This rule runs exactly once per request, here.
func NormalizeScore(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	if raw <= 1.0 {
		raw *= 100
	}
	if raw > 100 {
		return 100
	}
	return raw
}

const (
	defaultMaxAttempts = 5
	defaultBackoffBase = 3 * time.Second
)

// Client wraps a Provider with retry policy and response normalization. One
// long-lived Client is constructed at process start and injected into the
// orchestrator.
type Client struct {
	provider    Provider
	labels      LabelTable
	maxAttempts int
	backoffBase time.Duration
	log         zerolog.Logger
}

// ClientOption adjusts Client construction.
type ClientOption func(*Client)

// WithRetryPolicy overrides the attempt cap and the linear backoff base.
func WithRetryPolicy(maxAttempts int, backoffBase time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.backoffBase = backoffBase
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient builds a classification client around the given provider and
// label table.
func NewClient(provider Provider, labels LabelTable, opts ...ClientOption) *Client {
	c := &Client{
		provider:    provider,
		labels:      labels,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		log:         zerolog.Nop(),
	}
	if c.labels == nil {
		c.labels = DefaultLabelTable()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify sends text to the remote model. Cold-start failures are retried
// with linearly increasing backoff up to the attempt cap; every other error
// fails immediately since retrying auth or contract errors cannot succeed.
func (c *Client) Classify(ctx context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, fmt.Errorf("%w: empty input text", ErrMalformed)
	}

	var res Result
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), linearBackoff(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		var err error
		res, err = c.provider.Classify(ctx, text)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrServiceUnavailable) {
			c.log.Warn().Int("attempt", attempt).Msg("model warming up, will retry")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Label:      c.labels.Map(res.RawLabel),
		Confidence: NormalizeScore(res.RawScore),
	}
	c.log.Debug().
		Str("raw_label", res.RawLabel).
		Float64("raw_score", res.RawScore).
		Str("label", string(out.Label)).
		Float64("confidence", out.Confidence).
		Msg("classification mapped")
	return out, nil
}

// linearBackoff yields base, 2*base, 3*base, ... per the cold-start contract
// of the inference service.
func linearBackoff(base time.Duration) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}
