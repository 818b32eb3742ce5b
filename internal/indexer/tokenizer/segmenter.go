package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
)

var errInvalidUTF8 = errors.New("input is not valid UTF-8")

// KagomeSegmenter runs morphological analysis with the IPA dictionary.
// It is safe for concurrent use.
type KagomeSegmenter struct {
	t *kagome.Tokenizer
}

func NewKagomeSegmenter() (*KagomeSegmenter, error) {
	t, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("loading kagome ipa dictionary: %w", err)
	}
	return &KagomeSegmenter{t: t}, nil
}

func (k *KagomeSegmenter) Segment(text string) ([][]string, error) {
	if !utf8.ValidString(text) {
		return nil, errInvalidUTF8
	}
	var out [][]string
	for _, sentence := range splitSentences(text) {
		morphs := k.t.Analyze(sentence, kagome.Normal)
		tokens := make([]string, 0, len(morphs))
		for _, m := range morphs {
			if m.Class == kagome.DUMMY || strings.TrimSpace(m.Surface) == "" {
				continue
			}
			tokens = append(tokens, m.Surface)
		}
		if len(tokens) > 0 {
			out = append(out, tokens)
		}
	}
	return out, nil
}

// WhitespaceSegmenter treats each line as a sentence and each run of
// non-space characters as a token.
type WhitespaceSegmenter struct{}

func (WhitespaceSegmenter) Segment(text string) ([][]string, error) {
	if !utf8.ValidString(text) {
		return nil, errInvalidUTF8
	}
	var out [][]string
	for _, line := range strings.Split(text, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, fields)
		}
	}
	return out, nil
}

// splitSentences cuts after Japanese and Latin terminal punctuation and at
// line breaks. The terminator stays with its sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		switch r {
		case '。', '！', '？', '!', '?', '\n':
			end := i + utf8.RuneLen(r)
			if s := text[start:end]; strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
			start = end
		}
	}
	if s := text[start:]; strings.TrimSpace(s) != "" {
		out = append(out, s)
	}
	return out
}
