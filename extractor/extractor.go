package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Boilerplate tags whose whole subtree is dropped before any extraction.
// Nav links and script payloads match keywords far too eagerly otherwise.
const noiseSelector = "script, style, nav, footer, header, aside, noscript, iframe, svg, form"

// Tags considered as keyword-match candidates.
const candidateSelector = "p, h1, h2, h3, h4, li, td, dt, dd, blockquote"

// Match length window in runes. Shorter fragments are link labels and
// crumbs; longer ones are whole-page text dumps.
const (
	minMatchLen = 15
	maxMatchLen = 1500
)

// Page is the extraction result for one document.
type Page struct {
	Title       string
	Description string

	// Matches holds keyword-matching blocks in document order, capped;
	// MatchCount is the total found before capping.
	Matches    []string
	MatchCount int
}

// Parse builds a document from UTF-8 HTML text and strips noise subtrees.
// The returned document is what both match extraction and image harvesting
// operate on, so images inside removed subtrees are never harvested either.
func Parse(htmlText string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	doc.Find(noiseSelector).Remove()
	return doc, nil
}

// Extract collects the title, meta description and keyword matches from a
// parsed (noise-stripped) document. sourceURL is the title fallback.
// maxMatches caps the returned slice; the pre-cap total is MatchCount.
func Extract(doc *goquery.Document, keyword, sourceURL string, maxMatches int) *Page {
	page := &Page{
		Title:       extractTitle(doc, sourceURL),
		Description: extractDescription(doc),
		Matches:     []string{},
	}

	kwLower := strings.ToLower(keyword)
	seen := make(map[string]struct{})

	doc.Find(candidateSelector).Each(func(_ int, s *goquery.Selection) {
		text := flatText(s)
		if !strings.Contains(strings.ToLower(text), kwLower) {
			return
		}
		if n := utf8.RuneCountInString(text); n <= minMatchLen || n >= maxMatchLen {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		page.MatchCount++
		if len(page.Matches) < maxMatches {
			page.Matches = append(page.Matches, text)
		}
	})

	return page
}

func extractTitle(doc *goquery.Document, sourceURL string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return sourceURL
	}
	return title
}

// extractDescription returns the content of the first meta tag whose name
// attribute equals "description", compared case-insensitively.
func extractDescription(doc *goquery.Document) string {
	desc := ""
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("name", ""), "description") {
			return true
		}
		desc = strings.TrimSpace(s.AttrOr("content", ""))
		return false
	})
	return desc
}

// flatText flattens a selection to its text content: each text node is
// trimmed and non-empty pieces are joined with single spaces, so element
// boundaries never glue words together.
func flatText(s *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range s.Nodes {
		walk(node)
	}
	return strings.Join(parts, " ")
}
