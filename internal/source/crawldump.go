package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
)

const (
	sentenceDir = "uri-sentence"
	mediaDir    = "uri-media"
	dumpLayout  = "2006-01-02-15"
	mediaSlots  = 4
)

// ErrNoDump is returned when a crawler has not written any dump yet.
var ErrNoDump = errors.New("no crawler dump found")

// crawlDumpSource reads the newest hourly dump a crawler left under
// <workdir>/crawler/<kind>/. Sentences come from uri-sentence/<hour>.tsv;
// media from the uri-media file of the same hour, when present.
type crawlDumpSource struct {
	base
	root string
}

func crawlDumpFactory(kind document.Kind) Factory {
	return func(deps Deps, target string) (Source, error) {
		if deps.Workdir == "" {
			return nil, fmt.Errorf("%s source needs a workdir", kind)
		}
		return &crawlDumpSource{
			base: base{kind: kind, target: target},
			root: filepath.Join(deps.Workdir, "crawler", string(kind)),
		}, nil
	}
}

func (c *crawlDumpSource) Load(ctx context.Context) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := latestDump(filepath.Join(c.root, sentenceDir))
	if err != nil {
		return nil, err
	}
	rows, err := readTSV(filepath.Join(c.root, sentenceDir, name), "uri", "sentence")
	if err != nil {
		return nil, err
	}

	media := map[string][]document.Media{}
	mediaPath := filepath.Join(c.root, mediaDir, name)
	if _, err := os.Stat(mediaPath); err == nil {
		media, err = readMedia(mediaPath)
		if err != nil {
			return nil, err
		}
	}

	docs := make([]document.Document, 0, len(rows))
	for _, r := range rows {
		uri, sentence := r[0], r[1]
		if uri == "" {
			continue
		}
		docs = append(docs, document.WithMedia(c.kind, uri, sentence, media[uri]))
	}
	return docs, nil
}

// latestDump returns the file name of the newest <hour>.tsv in dir, ordered
// by the hour in the name.
func latestDump(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoDump, dir)
		}
		return "", fmt.Errorf("listing %s: %w", dir, err)
	}
	type dump struct {
		name string
		hour time.Time
	}
	var dumps []dump
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".tsv" {
			continue
		}
		t, err := time.Parse(dumpLayout, strings.TrimSuffix(e.Name(), ".tsv"))
		if err != nil {
			continue
		}
		dumps = append(dumps, dump{name: e.Name(), hour: t})
	}
	if len(dumps) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoDump, dir)
	}
	sort.Slice(dumps, func(i, j int) bool { return dumps[i].hour.Before(dumps[j].hour) })
	return dumps[len(dumps)-1].name, nil
}

// readTSV returns the named columns of every data row. The header locates
// the columns, so a leading row-number column is tolerated.
func readTSV(path string, columns ...string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	idx := make([]int, len(columns))
	for i, col := range columns {
		idx[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == col {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var out [][]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		row := make([]string, len(idx))
		for i, j := range idx {
			if j < len(rec) {
				row[i] = rec[j]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// readMedia maps URI to its media. Slots padded with "empty" are dropped.
func readMedia(path string) (map[string][]document.Media, error) {
	cols := []string{"uri"}
	for i := 1; i <= mediaSlots; i++ {
		cols = append(cols, "media_url"+strconv.Itoa(i))
	}
	for i := 1; i <= mediaSlots; i++ {
		cols = append(cols, "media_caption"+strconv.Itoa(i))
	}
	rows, err := readTSV(path, cols...)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]document.Media, len(rows))
	for _, r := range rows {
		media := make([]document.Media, 0, mediaSlots)
		for i := 0; i < mediaSlots; i++ {
			url, caption := r[1+i], r[1+mediaSlots+i]
			if url == "" || url == document.EmptyCaption {
				continue
			}
			if caption == "" {
				caption = document.EmptyCaption
			}
			media = append(media, document.Media{URL: url, Caption: caption})
		}
		out[r[0]] = media
	}
	return out, nil
}
