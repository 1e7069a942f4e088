// Package analyze sequences extraction, normalization, and classification
// into a single verdict per request. Stage failures are converted into
// unsuccessful verdicts here; nothing past this package sees a raw pipeline
// error.
package analyze

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verinews/verinews/internal/classify"
	"github.com/verinews/verinews/internal/normalize"
	"github.com/verinews/verinews/internal/pdftext"
	"github.com/verinews/verinews/internal/scrape"
)

// Reason identifies why a request could not produce a label.
type Reason string

const (
	ReasonMissingInput       Reason = "missing_input"
	ReasonBlocked            Reason = "blocked"
	ReasonTimeout            Reason = "timeout"
	ReasonEmpty              Reason = "empty"
	ReasonUnreadable         Reason = "unreadable"
	ReasonServiceUnavailable Reason = "service_unavailable"
	ReasonAuthFailure        Reason = "auth_failure"
	ReasonMalformed          Reason = "malformed"
)

// Message renders a human-readable explanation for the boundary layer.
func (r Reason) Message() string {
	switch r {
	case ReasonMissingInput:
		return "no URL or document was provided"
	case ReasonBlocked:
		return "the site refused automated access"
	case ReasonTimeout:
		return "the page took too long to load"
	case ReasonEmpty:
		return "no readable article text was found"
	case ReasonUnreadable:
		return "the document could not be parsed"
	case ReasonServiceUnavailable:
		return "the classification model is busy, try again shortly"
	case ReasonAuthFailure:
		return "the classification service rejected our credentials"
	case ReasonMalformed:
		return "the classification exchange was malformed"
	default:
		return "analysis failed"
	}
}

// SnippetChars caps the display excerpt attached to a verdict.
const SnippetChars = 200

// Verdict is the structured outcome of one analysis. When Success is false
// the label is absent and ErrorReason explains why; confidence is always on
// the 0-100 scale.
type Verdict struct {
	Success     bool           `json:"success"`
	Label       classify.Label `json:"label,omitempty"`
	Confidence  float64        `json:"confidence"`
	Snippet     string         `json:"snippet,omitempty"`
	ErrorReason Reason         `json:"errorReason,omitempty"`
}

// WebFetcher acquires article text from a URL.
type WebFetcher interface {
	Fetch(ctx context.Context, rawurl string) (string, error)
}

// SnippetFetcher grabs display text cheaply, without the full strategy chain.
type SnippetFetcher interface {
	FetchStatic(ctx context.Context, rawurl string) (string, error)
}

// Classifier produces a mapped, scale-normalized outcome for prepared text.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Outcome, error)
}

// Options configures an Orchestrator.
type Options struct {
	// SatireDomains short-circuit to a Satire verdict without invoking the
	// classifier; a model trained on serious-news corpora must never see
	// known satire.
	SatireDomains []string
	// TrustedDomains short-circuit to a Real verdict.
	TrustedDomains []string
	// MaxInputChars is the normalization budget for classifier input.
	MaxInputChars int
	// Snippets, when set, supplies display text for short-circuited
	// verdicts. Best-effort: failures never fail the verdict.
	Snippets SnippetFetcher
	Logger   zerolog.Logger
}

// Orchestrator composes the pipeline per request type. It owns each request
// for its lifetime; no state is shared between concurrent requests.
type Orchestrator struct {
	web        WebFetcher
	classifier Classifier
	opts       Options
	log        zerolog.Logger
}

// New wires an orchestrator from its collaborators.
func New(web WebFetcher, classifier Classifier, opts Options) *Orchestrator {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = normalize.BudgetLargeModel
	}
	return &Orchestrator{
		web:        web,
		classifier: classifier,
		opts:       opts,
		log:        opts.Logger,
	}
}

// AnalyzeURL classifies the article behind a web URL.
func (o *Orchestrator) AnalyzeURL(ctx context.Context, rawurl string) Verdict {
	log := o.requestLogger().With().Str("input", "url").Str("url", rawurl).Logger()

	rawurl = strings.TrimSpace(rawurl)
	if rawurl == "" {
		return fail(log, ReasonMissingInput, nil)
	}
	host := hostOf(rawurl)
	if host == "" {
		return fail(log, ReasonMissingInput, errors.New("unparseable url"))
	}

	// Domain overrides run before any fetch or model call: cheaper, and the
	// only correct answer for known satire.
	if scrape.HostMatches(host, o.opts.SatireDomains) {
		log.Info().Str("host", host).Msg("satire domain short-circuit")
		return o.shortCircuit(ctx, rawurl, classify.LabelSatire)
	}
	if scrape.HostMatches(host, o.opts.TrustedDomains) {
		log.Info().Str("host", host).Msg("trusted domain short-circuit")
		return o.shortCircuit(ctx, rawurl, classify.LabelReal)
	}

	text, err := o.web.Fetch(ctx, rawurl)
	if err != nil {
		return fail(log, scrapeReason(err), err)
	}
	return o.classifyText(ctx, log, text)
}

// AnalyzePDF classifies the text of an uploaded PDF.
func (o *Orchestrator) AnalyzePDF(ctx context.Context, data []byte) Verdict {
	log := o.requestLogger().With().Str("input", "pdf").Int("bytes", len(data)).Logger()

	if len(data) == 0 {
		return fail(log, ReasonMissingInput, nil)
	}
	doc, err := pdftext.Extract(data)
	if err != nil {
		return fail(log, pdfReason(err), err)
	}
	if ctx.Err() != nil {
		return fail(log, ReasonTimeout, ctx.Err())
	}
	log.Debug().Int("pages", doc.Pages).Bool("truncated", doc.Truncated).Msg("pdf extracted")
	return o.classifyText(ctx, log, doc.Text)
}

func (o *Orchestrator) classifyText(ctx context.Context, log zerolog.Logger, text string) Verdict {
	norm := normalize.Normalize(text, o.opts.MaxInputChars)
	log.Debug().Int("source_chars", norm.SourceLength).Bool("truncated", norm.Truncated).Msg("text normalized")

	out, err := o.classifier.Classify(ctx, norm.Text)
	if err != nil {
		return fail(log, classifyReason(err), err)
	}
	v := Verdict{
		Success:    true,
		Label:      out.Label,
		Confidence: out.Confidence,
		Snippet:    normalize.Snippet(norm.Text, SnippetChars),
	}
	log.Info().Str("label", string(v.Label)).Float64("confidence", v.Confidence).Msg("verdict")
	return v
}

// shortCircuit builds a full-confidence verdict for a listed domain, with a
// best-effort snippet for display.
func (o *Orchestrator) shortCircuit(ctx context.Context, rawurl string, label classify.Label) Verdict {
	v := Verdict{Success: true, Label: label, Confidence: 100}
	if o.opts.Snippets != nil {
		if text, err := o.opts.Snippets.FetchStatic(ctx, rawurl); err == nil {
			v.Snippet = normalize.Snippet(text, SnippetChars)
		}
	}
	return v
}

func (o *Orchestrator) requestLogger() zerolog.Logger {
	return o.log.With().Str("request_id", uuid.NewString()).Logger()
}

func fail(log zerolog.Logger, reason Reason, err error) Verdict {
	log.Warn().Err(err).Str("reason", string(reason)).Msg("analysis failed")
	return Verdict{Success: false, ErrorReason: reason}
}

func scrapeReason(err error) Reason {
	switch {
	case errors.Is(err, scrape.ErrBlocked):
		return ReasonBlocked
	case errors.Is(err, scrape.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonEmpty
	}
}

func pdfReason(err error) Reason {
	if errors.Is(err, pdftext.ErrUnreadable) {
		return ReasonUnreadable
	}
	return ReasonEmpty
}

func classifyReason(err error) Reason {
	switch {
	case errors.Is(err, classify.ErrAuthFailure):
		return ReasonAuthFailure
	case errors.Is(err, classify.ErrMalformed):
		return ReasonMalformed
	default:
		return ReasonServiceUnavailable
	}
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
