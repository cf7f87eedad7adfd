package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quotegrab/quotegrab/internal/quotes"
)

// genericHTMLExtractor is the fallback for hosts without a tuned
// extractor. It collects blockquote text, elements whose class mentions
// "quote", and as a last resort paragraphs that look like Chuck Norris
// facts.
type genericHTMLExtractor struct{}

func (genericHTMLExtractor) Extract(content, source string) []quotes.Quote {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var out []quotes.Quote
	doc.Find("blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, quotes.Quote{Text: text, Source: source})
		}
	})

	doc.Find(`[class*="quote"]`).Each(func(_ int, s *goquery.Selection) {
		// Short snippets are navigation chrome, not quotes.
		if text := strings.TrimSpace(s.Text()); len(text) > 10 {
			out = append(out, quotes.Quote{Text: text, Source: source})
		}
	})

	if len(out) == 0 {
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 && containsChuckNorris(text) {
				out = append(out, quotes.Quote{Text: text, Source: source})
			}
		})
	}
	return quotes.Dedupe(out)
}

func containsChuckNorris(text string) bool {
	return strings.Contains(strings.ToLower(text), "chuck norris")
}
