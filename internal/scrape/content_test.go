package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articlePage = `<!doctype html>
<html><head><title>Council approves budget</title></head>
<body>
<nav><a href="/">Home</a><a href="/sport">Sport</a></nav>
<div class="cookie-banner">We use cookies to improve your experience. Accept all?</div>
<article>
<h1>Council approves budget after marathon session</h1>
<p>The city council approved the transit budget on Thursday evening after a session that stretched past midnight, with members debating dozens of amendments.</p>
<p>Officials said construction on the first of the new lines would begin early next year, funded by a combination of bonds and federal grants.</p>
<p>Ad</p>
</article>
<aside><p>Related: ten things to know about the mayor and the council this year</p></aside>
<footer>Copyright 2026</footer>
</body></html>`

func TestArticleText_IsolatesContent(t *testing.T) {
	text, err := ArticleText([]byte(articlePage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "transit budget") || !strings.Contains(text, "construction on the first") {
		t.Fatalf("article paragraphs missing: %q", text)
	}
	for _, banned := range []string{"cookies", "Home", "Related:", "Copyright"} {
		if strings.Contains(text, banned) {
			t.Errorf("boilerplate %q leaked into output", banned)
		}
	}
	if strings.Contains(text, "\nAd\n") || strings.HasSuffix(text, "Ad") {
		t.Errorf("noise fragment survived filtering: %q", text)
	}
}

func TestArticleText_FallsBackThroughRoots(t *testing.T) {
	page := `<html><body><main><p>` + strings.Repeat("Main region prose sentence goes here. ", 5) + `</p></main></body></html>`
	text, err := ArticleText([]byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Main region prose") {
		t.Fatalf("main content not selected: %q", text)
	}
}

func TestArticleText_BodyWithoutParagraphMarkup(t *testing.T) {
	page := `<html><body>Bare text without any paragraph tags at all, still worth returning.</body></html>`
	text, err := ArticleText([]byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Bare text") {
		t.Fatalf("flattened body text missing: %q", text)
	}
}

func TestEncyclopediaText(t *testing.T) {
	page := `<html><body>
<div id="mw-content-text"><div class="mw-parser-output">
<table class="infobox"><tr><td>Founded 1887 in a town whose name is long enough to pass filters</td></tr></table>
<p>The subject of this encyclopedia entry was a nineteenth-century institution known for its long and well documented history of public works.</p>
<p>Edit</p>
<p>Its archives were digitized in the early twenty-first century and remain a primary source for regional historians studying the period.</p>
</div></div>
</body></html>`
	text, err := encyclopediaText([]byte(page))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "nineteenth-century institution") || !strings.Contains(text, "digitized") {
		t.Fatalf("paragraphs missing: %q", text)
	}
	if strings.Contains(text, "Founded 1887") {
		t.Fatalf("infobox text leaked: %q", text)
	}
	if strings.Contains(text, "Edit") {
		t.Fatalf("chrome fragment leaked: %q", text)
	}
}

func TestStaticStrategy_FetchesAndExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected user agent header")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	s := &staticStrategy{client: &httpClient{UserAgent: "verinews-test", MaxAttempts: 1, PerRequestTimeout: 2 * time.Second}}
	text, err := s.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "transit budget") {
		t.Fatalf("article text missing: %q", text)
	}
}

func TestStaticStrategy_BlockedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := &staticStrategy{client: &httpClient{MaxAttempts: 1, PerRequestTimeout: 2 * time.Second}}
	_, err := s.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &httpClient{MaxAttempts: 2, PerRequestTimeout: 2 * time.Second}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestHTTPClient_RejectsNonHTTPScheme(t *testing.T) {
	c := &httpClient{MaxAttempts: 1, PerRequestTimeout: time.Second}
	if _, err := c.Get(context.Background(), "file:///etc/hosts"); err == nil {
		t.Fatalf("expected scheme rejection")
	}
}
