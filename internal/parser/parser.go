// Package parser extracts quote text from fetched source content.
//
// Content is routed to one of several extraction strategies: a JSON
// extractor for API responses, site-specific HTML extractors selected by
// host, and a generic HTML extractor as the fallback. A strategy that
// fails yields an empty result for that source; it never propagates.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/quotegrab/quotegrab/internal/quotes"
)

// Extractor pulls quote/source pairs out of raw content.
type Extractor interface {
	Extract(content, source string) []quotes.Quote
}

// siteExtractors maps a host substring to its tuned extractor. Order
// matters only in that the first match wins.
var siteExtractors = []struct {
	host      string
	extractor Extractor
}{
	{"parade.com", paradeExtractor{}},
	{"thefactsite.com", factSiteExtractor{}},
	{"chucknorrisfacts.fr", frenchFactsExtractor{}},
	{"factinate.com", factinateExtractor{}},
}

// ForSource returns the HTML extractor registered for the source URL,
// falling back to the generic extractor.
func ForSource(source string) Extractor {
	for _, e := range siteExtractors {
		if strings.Contains(source, e.host) {
			return e.extractor
		}
	}
	return genericHTMLExtractor{}
}

// Extract routes content to the right extractor. contentType is "json",
// "html", or "auto"; auto treats anything that parses as JSON as JSON and
// everything else as HTML.
func Extract(content, source, contentType string) []quotes.Quote {
	if contentType == "auto" || contentType == "" {
		if json.Valid([]byte(content)) {
			contentType = "json"
		} else {
			contentType = "html"
		}
	}
	if contentType == "json" {
		return jsonExtractor{}.Extract(content, source)
	}
	return ForSource(source).Extract(content, source)
}
