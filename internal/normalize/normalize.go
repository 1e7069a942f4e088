package normalize

import (
	"strings"
	"unicode/utf8"
)

// Character budgets sized to the remote model's context window. Small
// sequence-classification models truncate around 512 tokens, so anything past
// roughly 700 characters is wasted payload; larger models tolerate more.
const (
	BudgetSmallModel = 700
	BudgetLargeModel = 1500
)

// Noise thresholds for paragraph-level fragments. Anything shorter is almost
// always a menu entry, caption, or byline rather than article prose.
const (
	MinFragmentChars = 40
	MinFragmentWords = 8
)

// Result is the normalized text ready for classification, together with the
// size of the input it was derived from.
type Result struct {
	Text         string
	SourceLength int
	Truncated    bool
}

// Normalize trims and collapses whitespace, then truncates to the given
// character budget. Truncation is a hard prefix cut on rune boundaries, not
// sentence-aware; token-exact budgeting is intentionally out of scope.
func Normalize(text string, budget int) Result {
	cleaned := CollapseWhitespace(text)
	res := Result{Text: cleaned, SourceLength: utf8.RuneCountInString(cleaned)}
	if budget <= 0 {
		budget = BudgetLargeModel
	}
	if res.SourceLength > budget {
		res.Text = truncateRunes(cleaned, budget)
		res.Truncated = true
	}
	return res
}

// CollapseWhitespace reduces runs of blanks to single spaces and runs of
// blank lines to a single newline, trimming each line.
func CollapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	return strings.Join(out, "\n")
}

// IsNoiseFragment reports whether a text fragment is too short to be article
// prose. Used by extractors to drop navigation labels and captions.
func IsNoiseFragment(s string) bool {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < MinFragmentChars {
		return true
	}
	return len(strings.Fields(s)) < MinFragmentWords
}

// Snippet returns at most max runes of s for display purposes.
func Snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return truncateRunes(s, max)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == ' ' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
