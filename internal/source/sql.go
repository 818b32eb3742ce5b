package source

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/sagasu/pkg/errors"
)

// tableName accepts plain and schema-qualified identifiers only; the
// target is interpolated into the query.
var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// tableSource reads (uri, sentence) rows from a table.
type tableSource struct {
	base
	db Queryer
}

func newPostgres(deps Deps, target string) (Source, error) {
	return newTable(document.KindPostgres, deps.Postgres, target)
}

func newSqlite(deps Deps, target string) (Source, error) {
	return newTable(document.KindSqlite, deps.Sqlite, target)
}

func newTable(kind document.Kind, db Queryer, target string) (Source, error) {
	if db == nil {
		return nil, fmt.Errorf("%s source: database is not configured", kind)
	}
	if target == "" {
		target = "documents"
	}
	if !tableName.MatchString(target) {
		return nil, fmt.Errorf("%w: %s table name %q", apperrors.ErrInvalidInput, kind, target)
	}
	return &tableSource{base: base{kind: kind, target: target}, db: db}, nil
}

func (t *tableSource) Load(ctx context.Context) ([]document.Document, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT uri, sentence FROM "+t.target+" ORDER BY uri")
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.Name(), err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var uri, sentence string
		if err := rows.Scan(&uri, &sentence); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.Name(), err)
		}
		docs = append(docs, document.New(t.kind, uri, sentence))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", t.Name(), err)
	}
	return docs, nil
}
