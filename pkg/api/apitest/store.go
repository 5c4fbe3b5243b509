// Package apitest provides an in-memory api.Storage for handler tests.
package apitest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/docsapi/pkg/api"
)

// Store is a goroutine-safe in-memory api.Storage. Setting Err makes every
// call fail with it.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	users    map[string]*api.User
	projects map[int64]*api.Project
	versions map[int64]*api.Version
	builds   map[int64]*api.Build
	files    map[int64]*api.ImportedFile

	Err error
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*api.User),
		projects: make(map[int64]*api.Project),
		versions: make(map[int64]*api.Version),
		builds:   make(map[int64]*api.Build),
		files:    make(map[int64]*api.ImportedFile),
	}
}

var _ api.Storage = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func paginate[T any](items []T, page api.Page) []T {
	if page.Offset < 0 || page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

func sortedByID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if keep(m[id]) {
			out = append(out, m[id])
		}
	}
	return out
}

func matches(text string, q api.SearchQuery) bool {
	text = strings.ToLower(text)
	for _, t := range append(append([]string{}, q.Terms...), q.Phrases...) {
		if !strings.Contains(text, strings.ToLower(t)) {
			return false
		}
	}
	for _, t := range q.Excluded {
		if strings.Contains(text, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// CreateUser stores a user
func (s *Store) CreateUser(ctx context.Context, user *api.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("user %s: %w", user.Username, api.ErrAlreadyExists)
	}
	user.ID = s.id()
	cp := *user
	s.users[user.Username] = &cp
	return nil
}

// GetUser looks a user up by username
func (s *Store) GetUser(ctx context.Context, username string) (*api.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, api.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// ListUsers lists users ordered by ID
func (s *Store) ListUsers(ctx context.Context, filter api.UserFilter, page api.Page) ([]*api.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	byID := make(map[int64]*api.User, len(s.users))
	for _, u := range s.users {
		byID[u.ID] = u
	}
	all := sortedByID(byID, func(u *api.User) bool {
		return filter.Username == "" || u.Username == filter.Username
	})
	return paginate(all, page), int64(len(all)), nil
}

// CreateProject stores a project
func (s *Store) CreateProject(ctx context.Context, project *api.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, p := range s.projects {
		if p.Slug == project.Slug {
			return fmt.Errorf("project %s: %w", project.Slug, api.ErrAlreadyExists)
		}
	}
	now := time.Now().UTC()
	project.ID = s.id()
	project.CreatedAt, project.UpdatedAt = now, now
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

func (s *Store) projectBySlug(slug string) (*api.Project, bool) {
	for _, p := range s.projects {
		if p.Slug == slug {
			return p, true
		}
	}
	return nil, false
}

// GetProject looks a project up by slug
func (s *Store) GetProject(ctx context.Context, slug string) (*api.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.projectBySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%s: %w", slug, api.ErrProjectNotFound)
	}
	cp := *p
	return &cp, nil
}

// GetProjectByID looks a project up by ID
func (s *Store) GetProjectByID(ctx context.Context, id int64) (*api.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("id %d: %w", id, api.ErrProjectNotFound)
	}
	cp := *p
	return &cp, nil
}

// ListProjects lists projects ordered by ID
func (s *Store) ListProjects(ctx context.Context, filter api.ProjectFilter, page api.Page) ([]*api.Project, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.projects, func(p *api.Project) bool {
		if filter.Slug != "" && p.Slug != filter.Slug {
			return false
		}
		if filter.Username != "" {
			for _, u := range p.Users {
				if u == filter.Username {
					return true
				}
			}
			return false
		}
		return true
	})
	return paginate(all, page), int64(len(all)), nil
}

// UpdateProject replaces a stored project
func (s *Store) UpdateProject(ctx context.Context, project *api.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.projects[project.ID]; !ok {
		return fmt.Errorf("id %d: %w", project.ID, api.ErrProjectNotFound)
	}
	project.UpdatedAt = time.Now().UTC()
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

// CreateVersion stores a version; ProjectID must exist
func (s *Store) CreateVersion(ctx context.Context, version *api.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.projects[version.ProjectID]
	if !ok {
		return fmt.Errorf("id %d: %w", version.ProjectID, api.ErrProjectNotFound)
	}
	version.ID = s.id()
	version.ProjectSlug = p.Slug
	cp := *version
	s.versions[version.ID] = &cp
	return nil
}

// GetVersion looks a version up by project slug and version slug
func (s *Store) GetVersion(ctx context.Context, projectSlug, slug string) (*api.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, v := range s.versions {
		if v.ProjectSlug == projectSlug && v.Slug == slug {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s/%s: %w", projectSlug, slug, api.ErrVersionNotFound)
}

// GetVersionByID looks a version up by ID
func (s *Store) GetVersionByID(ctx context.Context, id int64) (*api.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("id %d: %w", id, api.ErrVersionNotFound)
	}
	cp := *v
	return &cp, nil
}

// ListVersions lists versions ordered by ID
func (s *Store) ListVersions(ctx context.Context, filter api.VersionFilter, page api.Page) ([]*api.Version, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.versions, func(v *api.Version) bool {
		if filter.ProjectSlug != "" && v.ProjectSlug != filter.ProjectSlug {
			return false
		}
		if filter.Slug != "" && v.Slug != filter.Slug {
			return false
		}
		return filter.Active == nil || v.Active == *filter.Active
	})
	out := make([]*api.Version, 0, len(all))
	for _, v := range paginate(all, page) {
		cp := *v
		out = append(out, &cp)
	}
	return out, int64(len(all)), nil
}

// UpdateVersion replaces a stored version
func (s *Store) UpdateVersion(ctx context.Context, version *api.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.versions[version.ID]; !ok {
		return fmt.Errorf("id %d: %w", version.ID, api.ErrVersionNotFound)
	}
	cp := *version
	s.versions[version.ID] = &cp
	return nil
}

// CreateBuild stores a build
func (s *Store) CreateBuild(ctx context.Context, build *api.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	p, ok := s.projects[build.ProjectID]
	if !ok {
		return fmt.Errorf("id %d: %w", build.ProjectID, api.ErrProjectNotFound)
	}
	build.ID = s.id()
	build.ProjectSlug = p.Slug
	if build.Date.IsZero() {
		build.Date = time.Now().UTC()
	}
	cp := *build
	s.builds[build.ID] = &cp
	return nil
}

// GetBuild looks a build up by ID
func (s *Store) GetBuild(ctx context.Context, id int64) (*api.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("build %d: %w", id, api.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

// ListBuilds lists builds ordered by ID
func (s *Store) ListBuilds(ctx context.Context, filter api.BuildFilter, page api.Page) ([]*api.Build, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.builds, func(b *api.Build) bool {
		return filter.ProjectSlug == "" || b.ProjectSlug == filter.ProjectSlug
	})
	return paginate(all, page), int64(len(all)), nil
}

// Builds returns every stored build ordered by ID
func (s *Store) Builds() []*api.Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedByID(s.builds, func(*api.Build) bool { return true })
}

// CreateFile stores an imported file; VersionID must exist
func (s *Store) CreateFile(ctx context.Context, file *api.ImportedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	v, ok := s.versions[file.VersionID]
	if !ok {
		return fmt.Errorf("id %d: %w", file.VersionID, api.ErrVersionNotFound)
	}
	file.ID = s.id()
	file.ProjectID = v.ProjectID
	file.ProjectSlug = v.ProjectSlug
	file.VersionSlug = v.Slug
	cp := *file
	s.files[file.ID] = &cp
	return nil
}

// GetFile looks a file up by ID
func (s *Store) GetFile(ctx context.Context, id int64) (*api.ImportedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file %d: %w", id, api.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

// ListFiles lists files ordered by ID
func (s *Store) ListFiles(ctx context.Context, filter api.FileFilter, page api.Page) ([]*api.ImportedFile, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.files, func(f *api.ImportedFile) bool {
		return filter.ProjectSlug == "" || f.ProjectSlug == filter.ProjectSlug
	})
	return paginate(all, page), int64(len(all)), nil
}

// SearchProjects matches the query against name and description
func (s *Store) SearchProjects(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.Project, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.projects, func(p *api.Project) bool {
		return matches(p.Name+" "+p.Description, query)
	})
	return paginate(all, page), int64(len(all)), nil
}

// SearchFiles matches the query against name and content
func (s *Store) SearchFiles(ctx context.Context, query api.SearchQuery, page api.Page) ([]*api.ImportedFile, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, 0, s.Err
	}
	all := sortedByID(s.files, func(f *api.ImportedFile) bool {
		return matches(f.Name+" "+f.Content, query)
	})
	return paginate(all, page), int64(len(all)), nil
}
