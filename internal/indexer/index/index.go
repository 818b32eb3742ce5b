// Package index holds the inverted index: token -> documents containing it.
// Document lists keep duplicates. A document that yields the same token
// twice, or arrives through two merge inputs, appears twice; callers that
// need distinct hits de-duplicate at query time.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
)

// TermEntry is one token and its document list, the unit snapshots persist.
type TermEntry struct {
	Term      string
	Documents []document.Document
}

// InvertedIndex is not safe for concurrent mutation. The indexing engine
// owns an index while building it; readers share it only after the build.
type InvertedIndex struct {
	postings map[string][]document.Document
}

func New() *InvertedIndex {
	return &InvertedIndex{postings: make(map[string][]document.Document)}
}

// FromEntries rebuilds an index from persisted entries.
func FromEntries(entries []TermEntry) *InvertedIndex {
	x := &InvertedIndex{postings: make(map[string][]document.Document, len(entries))}
	for _, e := range entries {
		x.Add(e.Term, e.Documents...)
	}
	return x
}

// Add appends docs to token's list, creating the entry if absent.
func (x *InvertedIndex) Add(token string, docs ...document.Document) {
	x.postings[token] = append(x.postings[token], docs...)
}

// Lookup returns a copy of token's document list, nil if absent.
func (x *InvertedIndex) Lookup(token string) []document.Document {
	docs, ok := x.postings[token]
	if !ok {
		return nil
	}
	out := make([]document.Document, len(docs))
	copy(out, docs)
	return out
}

func (x *InvertedIndex) Contains(token string) bool {
	_, ok := x.postings[token]
	return ok
}

// Len is the number of distinct tokens.
func (x *InvertedIndex) Len() int {
	return len(x.postings)
}

func (x *InvertedIndex) Empty() bool {
	return len(x.postings) == 0
}

// Postings is the total number of (token, document) pairs, duplicates
// included.
func (x *InvertedIndex) Postings() int {
	total := 0
	for _, docs := range x.postings {
		total += len(docs)
	}
	return total
}

// Documents returns every distinct document referenced by the index,
// ordered by URI.
func (x *InvertedIndex) Documents() []document.Document {
	set := document.NewSet()
	for _, term := range x.Terms() {
		for _, d := range x.postings[term] {
			set.Add(d)
		}
	}
	docs := set.Documents()
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// DocCount is the number of distinct document URIs.
func (x *InvertedIndex) DocCount() int {
	seen := make(map[string]struct{})
	for _, docs := range x.postings {
		for _, d := range docs {
			seen[d.Key()] = struct{}{}
		}
	}
	return len(seen)
}

// Terms returns the tokens in sorted order.
func (x *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(x.postings))
	for t := range x.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// Entries returns a sorted copy suitable for persistence.
func (x *InvertedIndex) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(x.postings))
	for _, term := range x.Terms() {
		entries = append(entries, TermEntry{Term: term, Documents: x.Lookup(term)})
	}
	return entries
}

// URISets maps each token to the set of URIs in its list, the view under
// which two indexes built from the same input compare equal.
func (x *InvertedIndex) URISets() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(x.postings))
	for term, docs := range x.postings {
		set := make(map[string]struct{}, len(docs))
		for _, d := range docs {
			set[d.Key()] = struct{}{}
		}
		out[term] = set
	}
	return out
}

// Equivalent reports whether a and b hold the same token -> URI-set mapping.
// List order and duplicate counts are ignored.
func Equivalent(a, b *InvertedIndex) bool {
	if a.Len() != b.Len() {
		return false
	}
	as, bs := a.URISets(), b.URISets()
	for term, aset := range as {
		bset, ok := bs[term]
		if !ok || len(aset) != len(bset) {
			return false
		}
		for uri := range aset {
			if _, ok := bset[uri]; !ok {
				return false
			}
		}
	}
	return true
}
