package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Sub-resources that never contribute article text. Blocking them cuts
// render latency sharply on media-heavy news pages.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3",
	"*.css",
}

// Page titles that indicate a bot challenge rather than content.
var blockTitleMarkers = []string{
	"access denied",
	"just a moment",
	"attention required",
	"are you a robot",
	"verify you are human",
	"403 forbidden",
	"captcha",
}

// browserStrategy renders the page in headless Chrome with a realistic
// identity so script-gated pages produce their article markup. The browser
// process is scoped to a single fetch and torn down on every exit path via
// the context cancels below.
type browserStrategy struct {
	userAgent string
	headless  bool
	timeout   time.Duration
}

func (s *browserStrategy) Name() string { return "browser" }

func (s *browserStrategy) Fetch(ctx context.Context, rawurl string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(s.userAgent),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTimeout()

	headers := network.Headers{
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://www.google.com/",
	}

	resp, err := chromedp.RunResponse(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		network.SetBlockedURLS(blockedResourcePatterns),
		chromedp.Navigate(rawurl),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		return "", fmt.Errorf("navigate: %w", err)
	}
	if resp != nil && resp.Status >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrBlocked, resp.Status)
	}

	var title, pageHTML string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		return "", fmt.Errorf("read rendered page: %w", err)
	}

	if isBlockTitle(title) {
		return "", fmt.Errorf("%w: page title %q", ErrBlocked, title)
	}
	return ArticleText([]byte(pageHTML))
}

func isBlockTitle(title string) bool {
	title = strings.ToLower(title)
	for _, marker := range blockTitleMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}
