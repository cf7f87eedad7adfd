package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quotegrab/quotegrab/internal/quotes"
)

// leadingNumber strips list numbering like "42. " from scraped items.
var leadingNumber = regexp.MustCompile(`^\d+\.?\s*`)

// acceptQuote is the shared filter for site-specific extractors: bounded
// length and a case-insensitive "chuck norris" mention.
func acceptQuote(text string) bool {
	return len(text) > 20 && len(text) < 500 && containsChuckNorris(text)
}

// extractBySelectors runs each selector over the document, applying the
// shared acceptance filter plus an optional per-site text cleanup.
func extractBySelectors(content, source string, selectors []string, clean func(string) string) []quotes.Quote {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var out []quotes.Quote
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if clean != nil {
				text = clean(text)
			}
			if acceptQuote(text) {
				out = append(out, quotes.Quote{Text: text, Source: source})
			}
		})
	}
	return quotes.Dedupe(out)
}

// paradeExtractor targets parade.com joke listicles.
type paradeExtractor struct{}

func (paradeExtractor) Extract(content, source string) []quotes.Quote {
	return extractBySelectors(content, source, []string{
		"div.article-body p",
		"p",
		"li",
		`[class*="joke"]`,
		`[class*="fact"]`,
	}, nil)
}

// factSiteExtractor targets thefactsite.com numbered fact lists.
type factSiteExtractor struct{}

func (factSiteExtractor) Extract(content, source string) []quotes.Quote {
	return extractBySelectors(content, source, []string{"li"}, stripNumbering)
}

// frenchFactsExtractor targets chucknorrisfacts.fr.
type frenchFactsExtractor struct{}

func (frenchFactsExtractor) Extract(content, source string) []quotes.Quote {
	return extractBySelectors(content, source, []string{
		"div.fact",
		"p",
		"li",
		`[class*="fact"]`,
	}, stripNumbering)
}

// factinateExtractor targets factinate.com.
type factinateExtractor struct{}

func (factinateExtractor) Extract(content, source string) []quotes.Quote {
	return extractBySelectors(content, source, []string{
		"blockquote",
		"div.quote",
		"p",
		`[class*="quote"]`,
		`[class*="joke"]`,
	}, nil)
}

func stripNumbering(text string) string {
	return strings.TrimSpace(leadingNumber.ReplaceAllString(text, ""))
}
