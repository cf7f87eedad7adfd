// Package quotes defines core types shared across subsystems.
package quotes

// Quote is a single extracted quote attributed to its originating source.
// ID is zero until the row has been persisted.
type Quote struct {
	ID     int64  `json:"id"`
	Text   string `json:"quote"`
	Source string `json:"source"`
}

// Dedupe removes in-batch duplicates by quote text, preserving order.
// The store enforces global uniqueness; this keeps a single parse pass
// from reporting the same quote twice.
func Dedupe(in []Quote) []Quote {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Quote, 0, len(in))
	for _, q := range in {
		if _, ok := seen[q.Text]; ok {
			continue
		}
		seen[q.Text] = struct{}{}
		out = append(out, q)
	}
	return out
}
