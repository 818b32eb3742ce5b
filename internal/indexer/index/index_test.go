package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/tokenizer"
)

var ws = tokenizer.NewWordNGram(tokenizer.ModeWhitespace, tokenizer.WhitespaceSegmenter{})

func uris(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.URI
	}
	return out
}

func mustBuild(t *testing.T, doc document.Document, n int) *InvertedIndex {
	t.Helper()
	x, err := Build(ws, doc, n)
	require.NoError(t, err)
	return x
}

func TestBuildScenario(t *testing.T) {
	doc := document.New(document.KindSample, "a", "猫 が 好き")

	uni := mustBuild(t, doc, 1)
	assert.Equal(t, []string{"が", "好き", "猫"}, uni.Terms())
	for _, term := range []string{"猫", "が", "好き"} {
		assert.Equal(t, []string{"a"}, uris(uni.Lookup(term)), term)
	}

	bi := mustBuild(t, doc, 2)
	assert.Equal(t, []string{"が好き", "猫が"}, bi.Terms())
	assert.Equal(t, []string{"a"}, uris(bi.Lookup("猫が")))
	assert.Equal(t, []string{"a"}, uris(bi.Lookup("が好き")))
}

func TestBuildAppendsRepeatedTokens(t *testing.T) {
	doc := document.New(document.KindSample, "a", "にゃー にゃー にゃー")
	x := mustBuild(t, doc, 1)
	assert.Equal(t, []string{"a", "a", "a"}, uris(x.Lookup("にゃー")))
	assert.Equal(t, 3, x.Postings())
	assert.Equal(t, 1, x.DocCount())
}

func TestBuildWidthAboveTokenCount(t *testing.T) {
	x := mustBuild(t, document.New(document.KindSample, "a", "猫"), 2)
	assert.True(t, x.Empty())
}

func TestBuildPropagatesTokenizerError(t *testing.T) {
	_, err := Build(ws, document.New(document.KindSample, "bad", "\xff"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestMergeSharedToken(t *testing.T) {
	a := mustBuild(t, document.New(document.KindSample, "a", "猫 が 好き"), 1)
	b := mustBuild(t, document.New(document.KindSample, "b", "犬 が 好き"), 1)

	m := Merge(a, b)
	assert.ElementsMatch(t, []string{"a", "b"}, uris(m.Lookup("が")))
	assert.ElementsMatch(t, []string{"a", "b"}, uris(m.Lookup("好き")))
	assert.Equal(t, []string{"a"}, uris(m.Lookup("猫")))
	assert.Equal(t, []string{"b"}, uris(m.Lookup("犬")))
	// b's list comes first
	assert.Equal(t, []string{"b", "a"}, uris(m.Lookup("が")))
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := mustBuild(t, document.New(document.KindSample, "a", "x y"), 1)
	b := mustBuild(t, document.New(document.KindSample, "b", "x z"), 1)

	m := Merge(a, b)
	m.Add("x", document.New(document.KindSample, "c", ""))

	assert.Equal(t, []string{"a", "b", "c"}, uris(m.Lookup("x")))
	assert.Equal(t, []string{"a"}, uris(a.Lookup("x")))
	assert.Equal(t, []string{"b"}, uris(b.Lookup("x")))
	assert.Nil(t, a.Lookup("z"))
}

func TestMergeKeepsDuplicates(t *testing.T) {
	doc := document.New(document.KindSample, "a", "x")
	p := mustBuild(t, doc, 1)
	m := Merge(p, p)
	assert.Equal(t, []string{"a", "a"}, uris(m.Lookup("x")))
}

func TestMergeAssociativeUpToOrder(t *testing.T) {
	a := mustBuild(t, document.New(document.KindSample, "a", "猫 が 好き"), 1)
	b := mustBuild(t, document.New(document.KindSample, "b", "犬 が 好き"), 2)
	c := mustBuild(t, document.New(document.KindSample, "c", "猫 と 犬"), 1)

	left := Merge(Merge(a, b), c)
	right := Merge(a, Merge(b, c))
	assert.True(t, Equivalent(left, right))
	assert.True(t, Equivalent(Merge(a, b), Merge(b, a)))
	assert.True(t, Equivalent(left, MergeAll(c, b, a)))
	assert.Equal(t, left.Postings(), right.Postings())
}

func TestMergeNil(t *testing.T) {
	a := mustBuild(t, document.New(document.KindSample, "a", "x"), 1)
	assert.True(t, Equivalent(a, Merge(a, nil)))
	assert.True(t, Equivalent(a, Merge(nil, a)))
	assert.True(t, MergeAll().Empty())
}

func TestMergeAllOrder(t *testing.T) {
	parts := []*InvertedIndex{
		mustBuild(t, document.New(document.KindSample, "1", "k"), 1),
		mustBuild(t, document.New(document.KindSample, "2", "k"), 1),
		mustBuild(t, document.New(document.KindSample, "3", "k"), 1),
	}
	assert.Equal(t, []string{"1", "2", "3"}, uris(MergeAll(parts...).Lookup("k")))
}

func TestEquivalentDetectsDifferences(t *testing.T) {
	a := mustBuild(t, document.New(document.KindSample, "a", "x y"), 1)
	b := mustBuild(t, document.New(document.KindSample, "b", "x y"), 1)
	c := mustBuild(t, document.New(document.KindSample, "a", "x"), 1)
	assert.False(t, Equivalent(a, b))
	assert.False(t, Equivalent(a, c))
	assert.True(t, Equivalent(New(), New()))
}

func TestEntriesRoundTrip(t *testing.T) {
	x := MergeAll(
		mustBuild(t, document.New(document.KindSample, "a", "猫 が 好き"), 1),
		mustBuild(t, document.New(document.KindSample, "b", "犬 が 好き"), 2),
	)
	entries := x.Entries()
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Term, entries[i].Term)
	}
	assert.Equal(t, x.Entries(), FromEntries(entries).Entries())
	assert.Equal(t, []string{"a", "b"}, uris(x.Documents()))
}

func TestLookupReturnsCopy(t *testing.T) {
	x := mustBuild(t, document.New(document.KindSample, "a", "x"), 1)
	got := x.Lookup("x")
	got[0].URI = "mutated"
	assert.Equal(t, []string{"a"}, uris(x.Lookup("x")))
	assert.Nil(t, x.Lookup("missing"))
}
