// Package document defines the unit sagasu indexes. A Document's identity
// is its URI: two documents with the same URI are the same document no
// matter what their sentence or media say.
package document

import "fmt"

// Kind names the source family a document came from.
type Kind string

const (
	KindSample   Kind = "sample"
	KindTwitter  Kind = "twitter"
	KindScrapbox Kind = "scrapbox"
	KindDummy    Kind = "dummy"
	KindPostgres Kind = "postgres"
	KindSqlite   Kind = "sqlite"
)

// EmptyCaption is the placeholder crawlers write when captioning is off.
const EmptyCaption = "empty"

var kinds = map[Kind]bool{
	KindSample:   false,
	KindTwitter:  true,
	KindScrapbox: true,
	KindDummy:    false,
	KindPostgres: false,
	KindSqlite:   false,
}

// ParseKind validates a source kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("unknown document kind %q", s)
	}
	return k, nil
}

// CarriesMedia reports whether documents of this kind have a media list.
func (k Kind) CarriesMedia() bool {
	return kinds[k]
}

// Media is an attached image and its caption.
type Media struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// Captioned reports whether a real caption was produced for the media.
func (m Media) Captioned() bool {
	return m.Caption != "" && m.Caption != EmptyCaption
}

// Document is an indexed unit of text.
type Document struct {
	URI      string  `json:"uri"`
	Sentence string  `json:"sentence"`
	Kind     Kind    `json:"kind,omitempty"`
	Media    []Media `json:"media"`
}

// New builds a document without media.
func New(kind Kind, uri, sentence string) Document {
	return Document{URI: uri, Sentence: sentence, Kind: kind}
}

// WithMedia builds a document carrying a media list. A nil list is stored
// as empty so HasMedia stays true for media-bearing kinds.
func WithMedia(kind Kind, uri, sentence string, media []Media) Document {
	if media == nil {
		media = []Media{}
	}
	return Document{URI: uri, Sentence: sentence, Kind: kind, Media: media}
}

// Key is the identity used for equality and set membership.
func (d Document) Key() string {
	return d.URI
}

// Equal compares identity only.
func (d Document) Equal(other Document) bool {
	return d.URI == other.URI
}

// HasMedia reports whether a media list is present, even if empty.
func (d Document) HasMedia() bool {
	return d.Media != nil
}

// Preview returns at most n runes of the sentence.
func (d Document) Preview(n int) string {
	if n <= 0 {
		return d.Sentence
	}
	r := []rune(d.Sentence)
	if len(r) <= n {
		return d.Sentence
	}
	return string(r[:n])
}

func (d Document) String() string {
	return fmt.Sprintf("%s(%s)", d.Kind, d.URI)
}
