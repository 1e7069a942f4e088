package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeScore(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.5, 50},
		{0.87, 87},
		{1.0, 100},
		{42, 42},
		{87.5, 87.5},
		{100, 100},
		{250, 100},
		{-3, 0},
	}
	for _, c := range cases {
		if got := NormalizeScore(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeScore(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeScore_FractionRangeScalesBy100(t *testing.T) {
	// Property from the score contract: every fraction maps to 100*c, every
	// percentage passes through untouched.
	for c := 0.01; c <= 1.0; c += 0.01 {
		if got := NormalizeScore(c); math.Abs(got-100*c) > 1e-9 {
			t.Fatalf("fraction %v normalized to %v", c, got)
		}
	}
	for c := 1.5; c <= 100; c += 0.5 {
		if got := NormalizeScore(c); math.Abs(got-c) > 1e-9 {
			t.Fatalf("percentage %v changed to %v", c, got)
		}
	}
}

func TestLabelTable_Map(t *testing.T) {
	table := DefaultLabelTable()
	cases := map[string]Label{
		"REAL":      LabelReal,
		"real":      LabelReal,
		" Label_1 ": LabelReal,
		"FAKE":      LabelFake,
		"LABEL_0":   LabelFake,
		"0":         LabelFake,
		"gibberish": LabelUncertain,
		"":          LabelUncertain,
	}
	for raw, want := range cases {
		if got := table.Map(raw); got != want {
			t.Errorf("Map(%q) = %v, want %v", raw, got, want)
		}
	}
	// Pure function: repeated mapping never changes.
	for i := 0; i < 3; i++ {
		if table.Map("LABEL_1") != LabelReal {
			t.Fatalf("mapping is not stable")
		}
	}
}

type scriptedProvider struct {
	calls   int
	results []func() (Result, error)
}

func (p *scriptedProvider) Classify(ctx context.Context, text string) (Result, error) {
	step := p.calls
	p.calls++
	if step >= len(p.results) {
		step = len(p.results) - 1
	}
	return p.results[step]()
}

func TestClassify_RetriesColdStart(t *testing.T) {
	provider := &scriptedProvider{results: []func() (Result, error){
		func() (Result, error) { return Result{}, fmt.Errorf("%w: loading", ErrServiceUnavailable) },
		func() (Result, error) { return Result{}, fmt.Errorf("%w: loading", ErrServiceUnavailable) },
		func() (Result, error) { return Result{RawLabel: "REAL", RawScore: 0.91}, nil },
	}}
	c := NewClient(provider, DefaultLabelTable(), WithRetryPolicy(5, time.Millisecond))

	out, err := c.Classify(context.Background(), "some article text")
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", provider.calls)
	}
	if out.Label != LabelReal || math.Abs(out.Confidence-91) > 1e-9 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestClassify_GivesUpAfterAttemptCap(t *testing.T) {
	provider := &scriptedProvider{results: []func() (Result, error){
		func() (Result, error) { return Result{}, fmt.Errorf("%w: loading", ErrServiceUnavailable) },
	}}
	c := NewClient(provider, nil, WithRetryPolicy(3, time.Millisecond))

	_, err := c.Classify(context.Background(), "text")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected exactly %d attempts, got %d", 3, provider.calls)
	}
}

func TestClassify_AuthFailureIsNotRetried(t *testing.T) {
	provider := &scriptedProvider{results: []func() (Result, error){
		func() (Result, error) { return Result{}, fmt.Errorf("%w: bad key", ErrAuthFailure) },
	}}
	c := NewClient(provider, nil, WithRetryPolicy(5, time.Millisecond))

	_, err := c.Classify(context.Background(), "text")
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("auth failure must fail fast, got %d attempts", provider.calls)
	}
}

func TestClassify_EmptyTextIsMalformed(t *testing.T) {
	c := NewClient(&scriptedProvider{results: []func() (Result, error){
		func() (Result, error) { return Result{RawLabel: "REAL"}, nil },
	}}, nil)
	if _, err := c.Classify(context.Background(), "   "); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestInferenceProvider_ConfidenceField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"FAKE","confidence":0.93}`))
	}))
	defer srv.Close()

	p := &InferenceProvider{Endpoint: srv.URL}
	res, err := p.Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RawLabel != "FAKE" || math.Abs(res.RawScore-0.93) > 1e-9 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInferenceProvider_ScoreField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"label":"LABEL_1","score":87.0}`))
	}))
	defer srv.Close()

	p := &InferenceProvider{Endpoint: srv.URL}
	res, err := p.Classify(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RawLabel != "LABEL_1" || math.Abs(res.RawScore-87.0) > 1e-9 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestInferenceProvider_ColdStartSignals(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status 503", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"loading body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(c.handler)
			defer srv.Close()
			p := &InferenceProvider{Endpoint: srv.URL}
			_, err := p.Classify(context.Background(), "text")
			if !errors.Is(err, ErrServiceUnavailable) {
				t.Fatalf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	}
}

func TestInferenceProvider_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}))
	defer srv.Close()

	p := &InferenceProvider{Endpoint: srv.URL, APIKey: "bad"}
	_, err := p.Classify(context.Background(), "text")
	if !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
}

func TestInferenceProvider_MissingLabelIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"confidence":0.5}`))
	}))
	defer srv.Close()

	p := &InferenceProvider{Endpoint: srv.URL}
	_, err := p.Classify(context.Background(), "text")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
