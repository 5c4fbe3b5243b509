package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/docsapi/pkg/api"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// matchText adds conditions matching document against q. Postgres runs
// terms through full-text search; SQLite falls back to LIKE.
func (d Dialect) matchText(w *where, document string, q api.SearchQuery) {
	like, notLike := "LIKE", "NOT LIKE"
	if d == Postgres {
		like, notLike = "ILIKE", "NOT ILIKE"
		if len(q.Terms) > 0 {
			w.add("to_tsvector('english', "+document+") @@ plainto_tsquery('english', ?)", strings.Join(q.Terms, " "))
		}
	} else {
		for _, term := range q.Terms {
			w.add(document+" LIKE ? ESCAPE '\\'", likePattern(term))
		}
	}
	for _, phrase := range q.Phrases {
		w.add(document+" "+like+" ? ESCAPE '\\'", likePattern(phrase))
	}
	for _, word := range q.Excluded {
		w.add(document+" "+notLike+" ? ESCAPE '\\'", likePattern(word))
	}
}

// SearchProjects matches name and description
func (s *Store) SearchProjects(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.Project, int64, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.SearchProjects")
	defer span.End()
	span.SetAttributes(attribute.String("db.dialect", string(s.dialect)))

	w := &where{}
	s.dialect.matchText(w, "p.name || ' ' || p.description", query)
	return s.listProjects(ctx, w, page)
}

// SearchFiles matches file name and content
func (s *Store) SearchFiles(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.ImportedFile, int64, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.SearchFiles")
	defer span.End()
	span.SetAttributes(attribute.String("db.dialect", string(s.dialect)))

	w := &where{}
	s.dialect.matchText(w, "f.name || ' ' || f.content", query)
	files, total, err := selectPage(ctx, s, fileColumns, fileFrom, "f.id", w, page, scanFile)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search files: %w", err)
	}
	return files, total, nil
}
