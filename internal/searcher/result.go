package searcher

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
)

// Hit is one document in a search response.
type Hit struct {
	URI     string           `json:"uri"`
	Kind    document.Kind    `json:"kind,omitempty"`
	Preview string           `json:"preview"`
	Media   []document.Media `json:"media,omitempty"`
}

// SearchResult is a lookup collapsed to unique documents.
type SearchResult struct {
	Query     string `json:"query"`
	Snapshot  string `json:"snapshot"`
	TotalHits int    `json:"total_hits"`
	Postings  int    `json:"postings"`
	Results   []Hit  `json:"results"`
}

// SearchOptions bounds the response. Zero values mean unlimited.
type SearchOptions struct {
	Limit        int
	PreviewRunes int
}

// Search looks token up and de-duplicates the postings by URI, keeping the
// first occurrence. TotalHits counts unique documents before Limit is
// applied.
func (q *QueryEngine) Search(ctx context.Context, token string, opts SearchOptions) (*SearchResult, error) {
	docs, id, err := q.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	unique := document.Unique(docs)
	res := &SearchResult{
		Query:     token,
		Snapshot:  string(id),
		TotalHits: len(unique),
		Postings:  len(docs),
		Results:   make([]Hit, 0, len(unique)),
	}
	for i, d := range unique {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}
		res.Results = append(res.Results, Hit{
			URI:     d.URI,
			Kind:    d.Kind,
			Preview: d.Preview(opts.PreviewRunes),
			Media:   d.Media,
		})
	}
	return res, nil
}
