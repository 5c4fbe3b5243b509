package search

import (
	"context"
	"errors"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// PageSize is the number of results per search page
const PageSize = 20

// ErrNoSuchPage is returned for page numbers outside the result set
var ErrNoSuchPage = errors.New("no results on that page")

var tracer = otel.Tracer("docsapi/search")

// Index is the searchable backend
type Index interface {
	api.ProjectGetter
	SearchProjects(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.Project, int64, error)
	SearchFiles(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.ImportedFile, int64, error)
}

// ProjectHit is a matching project with its highlighted text
type ProjectHit struct {
	Project *api.Project
	Text    string
}

// FileHit is a matching file with its project and highlighted text
type FileHit struct {
	File    *api.ImportedFile
	Project *api.Project
	Text    string
}

// Service runs paginated searches over an Index
type Service struct {
	index   Index
	metrics *observability.Metrics
}

// NewService creates a search service. metrics may be nil.
func NewService(index Index, metrics *observability.Metrics) *Service {
	return &Service{index: index, metrics: metrics}
}

// pageFor converts a 1-based page number to a storage page
func pageFor(number int) (api.Page, error) {
	if number < 1 || number > math.MaxInt/PageSize {
		return api.Page{}, ErrNoSuchPage
	}
	return api.Page{Limit: PageSize, Offset: (number - 1) * PageSize}, nil
}

// checkPage rejects pages past the end; an empty first page is allowed
func checkPage(number int, total int64) error {
	if number > 1 && int64(number-1)*PageSize >= total {
		return ErrNoSuchPage
	}
	return nil
}

// Projects returns page number of the projects matching raw
func (s *Service) Projects(ctx context.Context, raw string, number int) (hits []ProjectHit, err error) {
	ctx, span := tracer.Start(ctx, "search.Projects")
	defer span.End()
	defer func() { s.finish(span, "project", err) }()

	page, err := pageFor(number)
	if err != nil {
		return nil, err
	}
	query := ParseQuery(raw)
	span.SetAttributes(attribute.String("search.query", raw), attribute.Int("search.page", number))
	if query.Empty() {
		return emptyPage(number, []ProjectHit{})
	}

	projects, total, err := s.index.SearchProjects(ctx, query, page)
	if err != nil {
		return nil, err
	}
	if err := checkPage(number, total); err != nil {
		return nil, err
	}

	words := Words(query)
	hits = make([]ProjectHit, 0, len(projects))
	for _, p := range projects {
		hits = append(hits, ProjectHit{Project: p, Text: Highlight(projectText(p), words)})
	}
	return hits, nil
}

// Files returns page number of the imported files matching raw
func (s *Service) Files(ctx context.Context, raw string, number int) (hits []FileHit, err error) {
	ctx, span := tracer.Start(ctx, "search.Files")
	defer span.End()
	defer func() { s.finish(span, "file", err) }()

	page, err := pageFor(number)
	if err != nil {
		return nil, err
	}
	query := ParseQuery(raw)
	span.SetAttributes(attribute.String("search.query", raw), attribute.Int("search.page", number))
	if query.Empty() {
		return emptyPage(number, []FileHit{})
	}

	files, total, err := s.index.SearchFiles(ctx, query, page)
	if err != nil {
		return nil, err
	}
	if err := checkPage(number, total); err != nil {
		return nil, err
	}

	projects := api.NewProjectSet(s.index)
	words := Words(query)
	hits = make([]FileHit, 0, len(files))
	for _, f := range files {
		p, err := projects.Get(ctx, f.ProjectID)
		if err != nil {
			return nil, err
		}
		text := f.Content
		if text == "" {
			text = f.Name
		}
		hits = append(hits, FileHit{File: f, Project: p, Text: Highlight(text, words)})
	}
	return hits, nil
}

func emptyPage[T any](number int, empty []T) ([]T, error) {
	if number > 1 {
		return nil, ErrNoSuchPage
	}
	return empty, nil
}

func (s *Service) finish(span trace.Span, index string, err error) {
	if err != nil && !errors.Is(err, ErrNoSuchPage) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordSearch(index, err)
		return
	}
	s.metrics.RecordSearch(index, nil)
}

func projectText(p *api.Project) string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + "\n" + p.Description
}
