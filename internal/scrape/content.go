package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/verinews/verinews/internal/normalize"
)

// Selector denylist for navigation, ads, and consent chrome. Removed before
// the content root is chosen so menus inside <article> do not survive.
var boilerplateSelectors = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form", "button",
	"[role=navigation]", "[role=banner]", "[role=contentinfo]", "[aria-hidden=true]",
	".cookie-banner", ".cookie-consent", "#cookie-banner", "#onetrust-consent-sdk",
	".gdpr", ".consent", ".consent-banner",
	".advertisement", ".ad-container", ".ads", "[data-ad]",
	".social-share", ".share-tools", ".newsletter-signup", ".related-articles",
	".comments", "#comments", ".breadcrumb", ".sidebar",
}

// Content-root candidates in priority order: semantic tags first, then
// common CMS body classes, then the whole document.
var contentRootSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".article-body", ".article-content", ".post-content", ".entry-content",
	".story-body", ".content-body", "#article-body",
	"body",
}

// ArticleText isolates the readable article body from raw HTML: strip the
// denylist, pick a content root, collect paragraph-level text, and drop
// fragments below the noise threshold.
func ArticleText(input []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strings.Join(boilerplateSelectors, ", ")).Remove()

	root := doc.Selection
	for _, sel := range contentRootSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			root = s
			break
		}
	}

	var paragraphs []string
	root.Find("p, h1, h2, h3, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if normalize.IsNoiseFragment(text) {
			return
		}
		paragraphs = append(paragraphs, text)
	})

	if len(paragraphs) == 0 {
		// No paragraph markup at all; fall back to the root's flattened text.
		return normalize.CollapseWhitespace(root.Text()), nil
	}
	return strings.Join(paragraphs, "\n"), nil
}
