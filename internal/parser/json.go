package parser

import (
	"encoding/json"

	"github.com/quotegrab/quotegrab/internal/quotes"
)

// jsonExtractor handles JSON API responses. It understands a single
// object carrying a "value" or "joke" key (api.chucknorris.io shape), an
// object with a "result" array (search endpoints), and bare arrays of
// objects or strings.
type jsonExtractor struct{}

func (jsonExtractor) Extract(content, source string) []quotes.Quote {
	var data any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil
	}

	var out []quotes.Quote
	switch v := data.(type) {
	case map[string]any:
		if q, ok := quoteFromObject(v, source); ok {
			out = append(out, q)
		} else if result, ok := v["result"].([]any); ok {
			out = append(out, quotesFromArray(result, source)...)
		}
	case []any:
		out = append(out, quotesFromArray(v, source)...)
	}
	return out
}

func quoteFromObject(obj map[string]any, source string) (quotes.Quote, bool) {
	for _, key := range []string{"value", "joke"} {
		if text, ok := obj[key].(string); ok {
			return quotes.Quote{Text: text, Source: source}, true
		}
	}
	return quotes.Quote{}, false
}

func quotesFromArray(items []any, source string) []quotes.Quote {
	var out []quotes.Quote
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if q, ok := quoteFromObject(v, source); ok {
				out = append(out, q)
			}
		case string:
			out = append(out, quotes.Quote{Text: v, Source: source})
		}
	}
	return out
}
