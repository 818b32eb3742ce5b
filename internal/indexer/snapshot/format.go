package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

// MagicBytes identifies a valid .sgsn snapshot file ("SGSN").
const (
	MagicBytes    uint32 = 0x5347534E
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the 64-byte header written at the start of every snapshot.
// Layout (little endian):
//
//	0:4 magic  4:8 version  8:12 terms  12:16 docs  16:24 created (unix ns)
//	24:32 docs offset  32:40 docs size  40:48 postings offset
//	48:56 postings size  56:64 dict size
//
// The dictionary starts right after the postings.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DocsOffset int64
	DocsSize   int64
	PostOffset int64
	PostSize   int64
	DictSize   int64
}

func (h Header) DictOffset() int64 {
	return h.PostOffset + h.PostSize
}

func (h Header) Created() time.Time {
	return time.Unix(0, h.CreatedAt).UTC()
}

// DictEntry maps a term to its postings offset and length relative to the
// postings section.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// encode serialises idx. Documents are stored once in a table and postings
// refer to them by position, so a document shared by many tokens costs one
// copy.
func encode(idx *index.InvertedIndex, created time.Time) ([]byte, error) {
	entries := idx.Entries()

	docs := make([]document.Document, 0)
	positions := make(map[string]int)
	for _, e := range entries {
		for _, d := range e.Documents {
			if _, ok := positions[d.Key()]; !ok {
				positions[d.Key()] = len(docs)
				docs = append(docs, d)
			}
		}
	}
	docsData, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("marshaling document table: %w", err)
	}

	var body bytes.Buffer
	body.Write(docsData)

	postStart := body.Len()
	dict := make([]DictEntry, 0, len(entries))
	for _, e := range entries {
		refs := make([]int, len(e.Documents))
		for i, d := range e.Documents {
			refs[i] = positions[d.Key()]
		}
		data, err := json.Marshal(refs)
		if err != nil {
			return nil, fmt.Errorf("marshaling postings for term %q: %w", e.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       e.Term,
			PostOffset: int64(body.Len() - postStart),
			PostLen:    len(data),
			DocFreq:    len(refs),
		})
		body.Write(data)
	}
	postSize := body.Len() - postStart

	dictData, err := json.Marshal(dict)
	if err != nil {
		return nil, fmt.Errorf("marshaling dictionary: %w", err)
	}
	body.Write(dictData)

	h := Header{
		Magic:      MagicBytes,
		Version:    FormatVersion,
		TermCount:  uint32(len(entries)),
		DocCount:   uint32(len(docs)),
		CreatedAt:  created.UnixNano(),
		DocsOffset: int64(HeaderSize),
		DocsSize:   int64(len(docsData)),
		PostOffset: int64(HeaderSize + postStart),
		PostSize:   int64(postSize),
		DictSize:   int64(len(dictData)),
	}

	out := make([]byte, 0, HeaderSize+body.Len()+FooterSize)
	out = append(out, marshalHeader(h)...)
	out = append(out, body.Bytes()...)

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body.Bytes()))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(docs)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(h.DictOffset()))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(body.Len()))
	return append(out, footer...), nil
}

func marshalHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DocsSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.DictSize))
	return b
}

func unmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, corrupt("truncated header: %d bytes", len(b))
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		DocsOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		DocsSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		PostOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
	if h.Magic != MagicBytes {
		return Header{}, corrupt("bad magic bytes %x", h.Magic)
	}
	if h.Version != FormatVersion {
		return Header{}, corrupt("unsupported format version %d", h.Version)
	}
	return h, nil
}

// decode validates the layout and checksum and rebuilds the index.
func decode(data []byte) (Header, *index.InvertedIndex, error) {
	h, err := unmarshalHeader(data)
	if err != nil {
		return Header{}, nil, err
	}
	if len(data) < HeaderSize+FooterSize {
		return Header{}, nil, corrupt("file too short: %d bytes", len(data))
	}
	body := data[HeaderSize : len(data)-FooterSize]
	footer := data[len(data)-FooterSize:]

	if got := binary.LittleEndian.Uint64(footer[24:32]); got != uint64(len(body)) {
		return Header{}, nil, corrupt("body length %d, footer says %d", len(body), got)
	}
	if sum := crc32.ChecksumIEEE(body); sum != binary.LittleEndian.Uint32(footer[0:4]) {
		return Header{}, nil, corrupt("checksum mismatch")
	}
	end := int64(len(data) - FooterSize)
	if !inRange(h.DocsOffset, h.DocsSize, int64(HeaderSize), end) ||
		!inRange(h.PostOffset, h.PostSize, h.DocsOffset+h.DocsSize, end) ||
		!inRange(h.DictOffset(), h.DictSize, h.PostOffset+h.PostSize, end) {
		return Header{}, nil, corrupt("section offsets out of range")
	}

	var docs []document.Document
	if err := json.Unmarshal(data[h.DocsOffset:h.DocsOffset+h.DocsSize], &docs); err != nil {
		return Header{}, nil, corrupt("parsing document table: %v", err)
	}
	var dict []DictEntry
	if err := json.Unmarshal(data[h.DictOffset():h.DictOffset()+h.DictSize], &dict); err != nil {
		return Header{}, nil, corrupt("parsing dictionary: %v", err)
	}
	if len(dict) != int(h.TermCount) || len(docs) != int(h.DocCount) {
		return Header{}, nil, corrupt("header counts do not match contents")
	}

	postings := data[h.PostOffset : h.PostOffset+h.PostSize]
	entries := make([]index.TermEntry, 0, len(dict))
	for _, d := range dict {
		if !inRange(d.PostOffset, int64(d.PostLen), 0, int64(len(postings))) {
			return Header{}, nil, corrupt("postings for term %q out of range", d.Term)
		}
		var refs []int
		if err := json.Unmarshal(postings[d.PostOffset:d.PostOffset+int64(d.PostLen)], &refs); err != nil {
			return Header{}, nil, corrupt("parsing postings for term %q: %v", d.Term, err)
		}
		list := make([]document.Document, len(refs))
		for i, r := range refs {
			if r < 0 || r >= len(docs) {
				return Header{}, nil, corrupt("term %q references document %d of %d", d.Term, r, len(docs))
			}
			list[i] = docs[r]
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Documents: list})
	}
	return h, index.FromEntries(entries), nil
}

// inRange reports whether off and off+size both lie within [lo, hi]. The header
// is outside the checksum, so every value read from it is untrusted.
func inRange(off, size, lo, hi int64) bool {
	return size >= 0 && off >= lo && off <= hi && size <= hi-off
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrSnapshotCorrupt, fmt.Sprintf(format, args...))
}
