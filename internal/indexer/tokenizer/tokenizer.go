// Package tokenizer turns sentences into n-gram index keys. Word n-grams
// are built from a Segmenter's token stream; character n-grams slide over
// grapheme clusters of the raw text. The indexing engine only sees the
// Tokenizer interface and does not care which mode is active.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

// ErrInvalidWidth is returned for n-gram widths below 1.
var ErrInvalidWidth = errors.New("n-gram width must be at least 1")

// Tokenizer produces the index keys of a sentence for width n. Fewer than n
// base tokens yields an empty slice, not an error.
type Tokenizer interface {
	Tokenize(sentence string, n int) ([]string, error)
	Name() string
}

// Segmenter splits text into sentences of surface tokens.
type Segmenter interface {
	Segment(text string) ([][]string, error)
}

// WordNGram joins n consecutive segmenter tokens into one key.
type WordNGram struct {
	seg  Segmenter
	name string
}

func NewWordNGram(name string, seg Segmenter) *WordNGram {
	return &WordNGram{seg: seg, name: name}
}

func (w *WordNGram) Name() string {
	return w.name
}

// Tokenize flattens the segmenter's sentences and slides a window of n over
// the result. Windows may span sentence boundaries.
func (w *WordNGram) Tokenize(sentence string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWidth, n)
	}
	sentences, err := w.seg.Segment(sentence)
	if err != nil {
		return nil, fmt.Errorf("%w: %s segmenter: %v", apperrors.ErrTokenization, w.name, err)
	}
	tokens := make([]string, 0, 16)
	for _, s := range sentences {
		tokens = append(tokens, s...)
	}
	return compose(tokens, n), nil
}

// CharNGram slides a window of n grapheme clusters over the raw sentence.
type CharNGram struct{}

func NewCharNGram() *CharNGram {
	return &CharNGram{}
}

func (CharNGram) Name() string {
	return "char"
}

func (CharNGram) Tokenize(sentence string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWidth, n)
	}
	clusters := make([]string, 0, len(sentence))
	g := uniseg.NewGraphemes(sentence)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}
	return compose(clusters, n), nil
}

// compose returns one string per window tokens[i:i+n], i in 0..len-n.
func compose(tokens []string, n int) []string {
	if len(tokens) < n {
		return []string{}
	}
	if n == 1 {
		out := make([]string, len(tokens))
		copy(out, tokens)
		return out
	}
	out := make([]string, 0, len(tokens)-n+1)
	var b strings.Builder
	for i := 0; i+n <= len(tokens); i++ {
		b.Reset()
		for _, t := range tokens[i : i+n] {
			b.WriteString(t)
		}
		out = append(out, b.String())
	}
	return out
}

// Modes accepted by New.
const (
	ModeWord       = "word"
	ModeWhitespace = "whitespace"
	ModeChar       = "char"
)

// New builds the tokenizer for a configured mode.
func New(mode string) (Tokenizer, error) {
	switch mode {
	case ModeWord, "":
		seg, err := NewKagomeSegmenter()
		if err != nil {
			return nil, err
		}
		return NewWordNGram(ModeWord, seg), nil
	case ModeWhitespace:
		return NewWordNGram(ModeWhitespace, WhitespaceSegmenter{}), nil
	case ModeChar:
		return NewCharNGram(), nil
	default:
		return nil, fmt.Errorf("%w: tokenizer mode %q", apperrors.ErrInvalidInput, mode)
	}
}
