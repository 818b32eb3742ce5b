package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short":  "ある晴れた日のこと。",
	"medium": "ある晴れた日のこと。魔法以上の愉快が限りなく降り注ぐ不可能じゃないわ。毎日の料理を楽しみにする。",
	"long":   strings.Repeat("毎日の料理を楽しみにする。明日は晴れるだろうか。", 50),
}

func BenchmarkWordNGram(b *testing.B) {
	tok, err := New(ModeWord)
	if err != nil {
		b.Fatal(err)
	}
	for name, text := range sampleTexts {
		for _, n := range []int{1, 2, 3} {
			b.Run(fmt.Sprintf("%s/n=%d", name, n), func(b *testing.B) {
				b.ReportAllocs()
				b.SetBytes(int64(len(text)))
				for i := 0; i < b.N; i++ {
					if _, err := tok.Tokenize(text, n); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkWordNGramParallel(b *testing.B) {
	tok, err := New(ModeWord)
	if err != nil {
		b.Fatal(err)
	}
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = tok.Tokenize(text, 2)
		}
	})
}

func BenchmarkCharNGram(b *testing.B) {
	tok := NewCharNGram()
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_, _ = tok.Tokenize(text, 2)
	}
}
