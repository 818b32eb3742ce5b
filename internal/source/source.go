// Package source turns the configured source list into documents. Each
// kind has a Factory; the registry maps config entries to Sources.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

// Source yields the documents of one configured origin.
type Source interface {
	Name() string
	Kind() document.Kind
	Target() string
	Load(ctx context.Context) ([]document.Document, error)
}

// Queryer is satisfied by *sql.DB.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Deps carries what factories may need. Database handles are nil unless a
// source of that kind is configured.
type Deps struct {
	Workdir  string
	Postgres Queryer
	Sqlite   Queryer
}

type Factory func(deps Deps, target string) (Source, error)

type Registry struct {
	factories map[document.Kind]Factory
}

// NewRegistry returns a registry with every built-in kind registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[document.Kind]Factory)}
	r.Register(document.KindSample, newSample)
	r.Register(document.KindDummy, newDummy)
	r.Register(document.KindTwitter, crawlDumpFactory(document.KindTwitter))
	r.Register(document.KindScrapbox, crawlDumpFactory(document.KindScrapbox))
	r.Register(document.KindPostgres, newPostgres)
	r.Register(document.KindSqlite, newSqlite)
	return r
}

func (r *Registry) Register(kind document.Kind, f Factory) {
	r.factories[kind] = f
}

// Open builds one Source per config entry, in config order.
func (r *Registry) Open(deps Deps, cfgs []config.SourceConfig) ([]Source, error) {
	sources := make([]Source, 0, len(cfgs))
	for i, c := range cfgs {
		f, ok := r.factories[document.Kind(c.Kind)]
		if !ok {
			return nil, fmt.Errorf("%w: sources[%d] has source_type %q", apperrors.ErrUnknownSourceKind, i, c.Kind)
		}
		s, err := f(deps, c.Target)
		if err != nil {
			return nil, fmt.Errorf("opening sources[%d] (%s): %w", i, c.Kind, err)
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// Needs reports whether any config entry is of kind.
func Needs(cfgs []config.SourceConfig, kind document.Kind) bool {
	for _, c := range cfgs {
		if document.Kind(c.Kind) == kind {
			return true
		}
	}
	return false
}

type base struct {
	kind   document.Kind
	target string
}

func (b base) Kind() document.Kind { return b.kind }
func (b base) Target() string      { return b.target }

func (b base) Name() string {
	if b.target == "" {
		return string(b.kind)
	}
	return string(b.kind) + ":" + b.target
}
