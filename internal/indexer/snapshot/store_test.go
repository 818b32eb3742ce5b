package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestStore(t *testing.T, start time.Time) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: start}
	s, err := NewStore(t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func sampleIndex() *index.InvertedIndex {
	a := document.New(document.KindSample, "a", "猫 が 好き")
	b := document.WithMedia(document.KindTwitter, "https://twitter.com/_/status/1", "犬 が 好き",
		[]document.Media{{URL: "https://pbs.example/1.jpg", Caption: document.EmptyCaption}})
	x := index.New()
	x.Add("猫", a)
	x.Add("が", a, b)
	x.Add("好き", a, b, a)
	x.Add("犬", b)
	return x
}

func TestSaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))

	original := sampleIndex()
	info, err := s.Save(ctx, original)
	require.NoError(t, err)
	assert.Equal(t, ID("index-2026-10-18-09"), info.ID)
	assert.FileExists(t, filepath.Join(s.Dir(), "index-2026-10-18-09.sgsn"))

	loaded, got, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
	assert.Equal(t, 4, got.Terms)
	assert.Equal(t, 2, got.Documents)
	assert.True(t, time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC).Equal(got.CreatedAt))

	// list order and duplicates survive the round trip, media included
	assert.Equal(t, original.Entries(), loaded.Entries())
	docs := loaded.Lookup("犬")
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Media, 1)
	assert.Equal(t, "https://pbs.example/1.jpg", docs[0].Media[0].URL)
}

func TestLoadLatestPicksLaterSnapshot(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	older := index.New()
	older.Add("old", document.New(document.KindSample, "o", "old"))
	_, err := s.Save(ctx, older)
	require.NoError(t, err)

	clock.t = clock.t.Add(26 * time.Hour)
	newer := index.New()
	newer.Add("new", document.New(document.KindSample, "n", "new"))
	_, err = s.Save(ctx, newer)
	require.NoError(t, err)

	// make the older file look newer on disk; ordering must ignore mtime
	oldPath := filepath.Join(s.Dir(), "index-2026-10-18-09.sgsn")
	future := time.Now().Add(48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, future, future))

	loaded, info, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ID("index-2026-10-19-11"), info.ID)
	assert.True(t, loaded.Contains("new"))
	assert.False(t, loaded.Contains("old"))

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, ID("index-2026-10-18-09"), infos[0].ID)
}

func TestSameHourSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Date(2026, 10, 18, 9, 5, 0, 0, time.UTC))

	first := index.New()
	first.Add("first", document.New(document.KindSample, "1", ""))
	_, err := s.Save(ctx, first)
	require.NoError(t, err)

	clock.t = clock.t.Add(20 * time.Minute)
	second := index.New()
	second.Add("second", document.New(document.KindSample, "2", ""))
	_, err = s.Save(ctx, second)
	require.NoError(t, err)

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)

	loaded, _, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Contains("second"))
	assert.False(t, loaded.Contains("first"))
}

func TestLoadLatestNotFound(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644))

	_, _, err := s.LoadLatest(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)
}

func TestEmptyIndexSnapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC))

	_, err := s.Save(ctx, index.New())
	require.NoError(t, err)

	loaded, info, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
	assert.Equal(t, 0, info.Terms)
}

func TestCorruptLatestIsFatal(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	_, err := s.Save(ctx, sampleIndex())
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Hour)
	info, err := s.Save(ctx, sampleIndex())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"flipped body byte", func(b []byte) []byte { b[HeaderSize+1] ^= 0xff; return b }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"truncated", func(b []byte) []byte { return b[:len(b)/2] }},
		{"tiny", func(b []byte) []byte { return b[:10] }},
		{"negative docs size", func(b []byte) []byte { b[39] ^= 0x80; return b }},
		{"huge postings offset", func(b []byte) []byte { b[47] = 0x7f; return b }},
		{"negative dict size", func(b []byte) []byte { b[63] ^= 0x80; return b }},
	}
	pristine, err := os.ReadFile(info.Path)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), pristine...)
			require.NoError(t, os.WriteFile(info.Path, tt.mutate(data), 0o644))

			_, _, err := s.LoadLatest(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrSnapshotCorrupt)
		})
	}
}

func TestLoadByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	_, err := s.Save(ctx, sampleIndex())
	require.NoError(t, err)

	_, info, err := s.Load(ctx, "index-2026-10-18-09")
	require.NoError(t, err)
	assert.Equal(t, 4, info.Terms)

	_, _, err = s.Load(ctx, "index-2026-10-18-10")
	assert.ErrorIs(t, err, apperrors.ErrSnapshotNotFound)

	_, _, err = s.Load(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseID(t *testing.T) {
	id, ts, err := ParseID("/tmp/x/index-2026-10-18-23.sgsn")
	require.NoError(t, err)
	assert.Equal(t, ID("index-2026-10-18-23"), id)
	assert.True(t, time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC).Equal(ts))

	_, _, err = ParseID("seg_123.spdx")
	assert.Error(t, err)

	assert.Equal(t, ID("index-2026-10-18-00"), IDFor(time.Date(2026, 10, 18, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))))
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Save(ctx, index.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMediaPresenceSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))

	tweet := document.WithMedia(document.KindTwitter, "https://twitter.com/_/status/2", "猫", nil)
	plain := document.New(document.KindSample, "a", "猫")
	x := index.New()
	x.Add("猫", tweet, plain)
	_, err := s.Save(ctx, x)
	require.NoError(t, err)

	loaded, _, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	docs := loaded.Lookup("猫")
	require.Len(t, docs, 2)
	assert.True(t, docs[0].HasMedia())
	assert.Empty(t, docs[0].Media)
	assert.False(t, docs[1].HasMedia())
}
