package scrape

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"

	"github.com/verinews/verinews/internal/normalize"
)

// MediaWiki-style encyclopedias serve complete HTML and actively reject
// headless browsers, so they are parsed without goquery overhead from the
// static fast path.
var encyclopediaHosts = []string{
	"wikipedia.org",
	"wikinews.org",
	"wiktionary.org",
}

func isEncyclopediaHost(host string) bool {
	return HostMatches(host, encyclopediaHosts)
}

// encyclopediaText extracts the prose paragraphs from a MediaWiki content
// region, skipping infoboxes, reference lists, and edit chrome.
func encyclopediaText(input []byte) (string, error) {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return "", errors.New("parse encyclopedia html")
	}

	content := findByAttr(node, "id", "mw-content-text")
	if content == nil {
		content = findByAttr(node, "class", "mw-parser-output")
	}
	if content == nil {
		content = findElement(node, "body")
	}
	if content == nil {
		return "", errors.New("no content region")
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "table", "style", "script", "sup", "figure":
				return
			case "p":
				text := strings.TrimSpace(flattenText(n))
				if !normalize.IsNoiseFragment(text) {
					paragraphs = append(paragraphs, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(content)

	if len(paragraphs) == 0 {
		return "", errors.New("no paragraphs in content region")
	}
	return strings.Join(paragraphs, "\n"), nil
}

func findByAttr(n *html.Node, key, val string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode {
			for _, attr := range cur.Attr {
				if strings.EqualFold(attr.Key, key) && attrContains(attr.Val, val) {
					res = cur
					return
				}
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func attrContains(attrVal, want string) bool {
	for _, f := range strings.Fields(attrVal) {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func flattenText(n *html.Node) string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
