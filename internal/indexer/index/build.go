package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/tokenizer"
)

// Build returns the partial index of one document under one width. It reads
// and writes nothing but the index it returns, so any number of Build calls
// may run in parallel.
func Build(tok tokenizer.Tokenizer, doc document.Document, n int) (*InvertedIndex, error) {
	tokens, err := tok.Tokenize(doc.Sentence, n)
	if err != nil {
		return nil, fmt.Errorf("tokenizing %s at width %d: %w", doc.URI, n, err)
	}
	x := &InvertedIndex{postings: make(map[string][]document.Document, len(tokens))}
	for _, t := range tokens {
		x.Add(t, doc)
	}
	return x, nil
}

// Merge combines two indexes into a fresh one. For every token the result
// holds b's documents followed by a's. Neither input is modified. Nil
// inputs count as empty.
func Merge(a, b *InvertedIndex) *InvertedIndex {
	out := New()
	if b != nil {
		appendInto(out, b)
	}
	if a != nil {
		appendInto(out, a)
	}
	return out
}

// MergeAll folds parts left to right: the result equals
// Merge(parts[n-1], ... Merge(parts[1], parts[0])). Only the accumulator it
// allocates is mutated.
func MergeAll(parts ...*InvertedIndex) *InvertedIndex {
	out := New()
	for _, p := range parts {
		if p != nil {
			appendInto(out, p)
		}
	}
	return out
}

func appendInto(dst, src *InvertedIndex) {
	for term, docs := range src.postings {
		dst.postings[term] = append(dst.postings[term], docs...)
	}
}
