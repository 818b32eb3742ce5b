package source

import (
	"context"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
)

// DefaultSampleFile is read by sample sources without a target.
const DefaultSampleFile = "data/sample/sample.txt"

// DummySentence is the single document of a dummy source.
const DummySentence = "ある晴れた日のこと。魔法以上の愉快が限りなく降り注ぐ不可能じゃないわ。"

// sampleSource reads one text file as one document whose URI is the path.
type sampleSource struct {
	base
	path string
}

func newSample(deps Deps, target string) (Source, error) {
	path := target
	if path == "" {
		path = DefaultSampleFile
	}
	return &sampleSource{base: base{kind: document.KindSample, target: target}, path: path}, nil
}

func (s *sampleSource) Load(ctx context.Context) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading sample file: %w", err)
	}
	return []document.Document{document.New(document.KindSample, s.path, string(b))}, nil
}

type dummySource struct {
	base
}

func newDummy(deps Deps, target string) (Source, error) {
	return &dummySource{base: base{kind: document.KindDummy, target: target}}, nil
}

func (d *dummySource) Load(ctx context.Context) ([]document.Document, error) {
	return []document.Document{document.New(document.KindDummy, "dummy", DummySentence)}, nil
}
