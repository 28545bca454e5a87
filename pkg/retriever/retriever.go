// Package retriever defines the Retriever Set: per-session lookups
// returning a dataset descriptor text and a styling-hint text for a
// query. The backend (vector index, keyword search, ...) is an
// external collaborator; this package specifies the interface plus a
// fixed-text stub implementation (§9, "Retriever abstraction").
package retriever

import "context"

// Retriever returns the top-k matches for a query. Implementations
// may back it with a vector index or a stub returning fixed text.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Top1 is a convenience wrapper used throughout the core: the input-
// assembly rules in §4.4/§4.5 only ever consume the single best match.
func Top1(ctx context.Context, r Retriever, query string) (string, error) {
	if r == nil {
		return "", nil
	}
	results, err := r.Retrieve(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0], nil
}

// Set bundles the two per-session retrievers a plan step may need:
// one for dataset descriptors, one for styling hints.
type Set struct {
	Dataset Retriever
	Style   Retriever
}

// Fixed is a stub Retriever that always returns the same text,
// regardless of query — useful for sessions with no backing index.
type Fixed struct {
	Text string
}

func (f Fixed) Retrieve(_ context.Context, _ string, k int) ([]string, error) {
	if f.Text == "" || k <= 0 {
		return nil, nil
	}
	return []string{f.Text}, nil
}
