package document

// Set holds documents keyed by URI, keeping first-insertion order.
type Set struct {
	index map[string]int
	docs  []Document
}

func NewSet(docs ...Document) *Set {
	s := &Set{index: make(map[string]int, len(docs))}
	for _, d := range docs {
		s.Add(d)
	}
	return s
}

// Add inserts d unless a document with the same URI is present. It reports
// whether d was added.
func (s *Set) Add(d Document) bool {
	if _, ok := s.index[d.Key()]; ok {
		return false
	}
	s.index[d.Key()] = len(s.docs)
	s.docs = append(s.docs, d)
	return true
}

func (s *Set) Contains(d Document) bool {
	_, ok := s.index[d.Key()]
	return ok
}

func (s *Set) Len() int {
	return len(s.docs)
}

// Documents returns the members in insertion order.
func (s *Set) Documents() []Document {
	out := make([]Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Keys returns the member URIs as a lookup set.
func (s *Set) Keys() map[string]struct{} {
	out := make(map[string]struct{}, len(s.docs))
	for k := range s.index {
		out[k] = struct{}{}
	}
	return out
}

// Unique collapses duplicate hits by URI, keeping the first occurrence.
func Unique(docs []Document) []Document {
	return NewSet(docs...).Documents()
}
