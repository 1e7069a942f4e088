// Package scrape acquires article text from web pages using a layered set of
// strategies: a static fast path for sites that reject headless browsers, a
// rendered-browser fetch for the general case, and a readability-style
// fallback. Strategies are tried in order and every layer failure triggers
// the next; only exhaustion surfaces to the caller.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verinews/verinews/internal/normalize"
)

var (
	// ErrBlocked indicates the target refused the request (status >= 400 or
	// a bot-challenge page).
	ErrBlocked = errors.New("blocked by target site")
	// ErrTimeout indicates navigation exceeded its deadline.
	ErrTimeout = errors.New("navigation timed out")
	// ErrEmpty indicates no strategy produced enough prose to classify.
	ErrEmpty = errors.New("no usable article text")
)

// MinViableChars is the floor below which extracted text is treated as a
// failed scrape rather than a short article.
const MinViableChars = 200

// Strategy is one way of turning a URL into article text.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, rawurl string) (string, error)
}

// Options configures a Fetcher.
type Options struct {
	// UserAgent is sent on every request, browser or static.
	UserAgent string
	// Headless toggles visible-browser mode for debugging.
	Headless bool
	// NavigationTimeout bounds a single browser render.
	NavigationTimeout time.Duration
	// StaticFirstDomains are hosts known to reject headless browsers, e.g.
	// encyclopedia-style sites; they get the static fast path first.
	StaticFirstDomains []string
	Logger             zerolog.Logger
}

// Fetcher runs the ordered strategy chain for a URL.
type Fetcher struct {
	static      *httpClient
	strategies  []Strategy
	staticFirst []string
	minViable   int
	log         zerolog.Logger
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// New builds a Fetcher with the standard three-layer chain.
func New(opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	static := &httpClient{
		UserAgent:         opts.UserAgent,
		MaxAttempts:       2,
		PerRequestTimeout: 15 * time.Second,
	}
	return &Fetcher{
		static: static,
		strategies: []Strategy{
			&browserStrategy{
				userAgent: opts.UserAgent,
				headless:  opts.Headless,
				timeout:   opts.NavigationTimeout,
			},
			&staticStrategy{client: static},
			&readabilityStrategy{client: static},
		},
		staticFirst: opts.StaticFirstDomains,
		minViable:   MinViableChars,
		log:         opts.Logger,
	}
}

// Fetch tries each strategy in order and returns the first result that
// clears the viability threshold.
func (f *Fetcher) Fetch(ctx context.Context, rawurl string) (string, error) {
	host, err := hostOf(rawurl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmpty, err)
	}

	chain := f.strategies
	if HostMatches(host, f.staticFirst) {
		// Known headless-hostile site: static parse leads the chain.
		chain = append([]Strategy{&staticStrategy{client: f.static}}, chain...)
	}

	minViable := f.minViable
	if minViable <= 0 {
		minViable = MinViableChars
	}

	var lastErr error
	for _, s := range chain {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		text, err := s.Fetch(ctx, rawurl)
		if err != nil {
			f.log.Debug().Str("strategy", s.Name()).Str("url", rawurl).Err(err).Msg("scrape layer failed")
			lastErr = err
			continue
		}
		text = normalize.CollapseWhitespace(text)
		if len(text) < minViable {
			f.log.Debug().Str("strategy", s.Name()).Int("chars", len(text)).Msg("scrape layer below viable length")
			lastErr = fmt.Errorf("%w: %d chars from %s", ErrEmpty, len(text), s.Name())
			continue
		}
		f.log.Info().Str("strategy", s.Name()).Str("url", rawurl).Int("chars", len(text)).Msg("article text acquired")
		return text, nil
	}
	if lastErr == nil {
		lastErr = ErrEmpty
	}
	return "", lastErr
}

// FetchStatic runs only the static layer. Used for best-effort display
// snippets where a failed fetch must not fail the request.
func (f *Fetcher) FetchStatic(ctx context.Context, rawurl string) (string, error) {
	s := &staticStrategy{client: f.static}
	text, err := s.Fetch(ctx, rawurl)
	if err != nil {
		return "", err
	}
	return normalize.CollapseWhitespace(text), nil
}

// HostMatches reports whether host equals any listed domain or is a
// subdomain of one.
func HostMatches(host string, domains []string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hostOf(rawurl string) (string, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", rawurl)
	}
	return u.Hostname(), nil
}
