package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/verinews/verinews/internal/normalize"
)

// readabilityStrategy is the last layer: a plain fetch pushed through a
// readability-style content extractor. It tends to recover prose from pages
// whose markup defeats the selector heuristics.
type readabilityStrategy struct {
	client *httpClient
}

func (s *readabilityStrategy) Name() string { return "readability" }

func (s *readabilityStrategy) Fetch(ctx context.Context, rawurl string) (string, error) {
	body, err := s.client.Get(ctx, rawurl)
	if err != nil {
		return "", err
	}
	pageURL, err := url.Parse(rawurl)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	var paragraphs []string
	for _, line := range strings.Split(article.TextContent, "\n") {
		line = strings.TrimSpace(line)
		if normalize.IsNoiseFragment(line) {
			continue
		}
		paragraphs = append(paragraphs, line)
	}
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("%w: readability produced no paragraphs", ErrEmpty)
	}
	return strings.Join(paragraphs, "\n"), nil
}
