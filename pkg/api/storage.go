package api

import "context"

// Page selects a window of a list result. Limit 0 means no limit.
type Page struct {
	Limit  int
	Offset int
}

// UserFilter narrows ListUsers
type UserFilter struct {
	Username string
}

// ProjectFilter narrows ListProjects
type ProjectFilter struct {
	Slug     string
	Username string
}

// VersionFilter narrows ListVersions
type VersionFilter struct {
	ProjectSlug string
	Slug        string
	Active      *bool
}

// BuildFilter narrows ListBuilds
type BuildFilter struct {
	ProjectSlug string
}

// FileFilter narrows ListFiles
type FileFilter struct {
	ProjectSlug string
}

// SearchQuery is a parsed free-text query. Terms and phrases must all match;
// excluded words must not.
type SearchQuery struct {
	Terms    []string
	Phrases  []string
	Excluded []string
}

// Empty reports whether the query has nothing to match on
func (q SearchQuery) Empty() bool {
	return len(q.Terms) == 0 && len(q.Phrases) == 0
}

// Storage is the persistence contract behind every resource.
// List methods return the requested page and the unpaged total.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter, page Page) ([]*User, int64, error)

	// Projects
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, slug string) (*Project, error)
	GetProjectByID(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter, page Page) ([]*Project, int64, error)
	UpdateProject(ctx context.Context, project *Project) error

	// Versions
	CreateVersion(ctx context.Context, version *Version) error
	GetVersion(ctx context.Context, projectSlug, slug string) (*Version, error)
	GetVersionByID(ctx context.Context, id int64) (*Version, error)
	ListVersions(ctx context.Context, filter VersionFilter, page Page) ([]*Version, int64, error)
	UpdateVersion(ctx context.Context, version *Version) error

	// Builds
	CreateBuild(ctx context.Context, build *Build) error
	GetBuild(ctx context.Context, id int64) (*Build, error)
	ListBuilds(ctx context.Context, filter BuildFilter, page Page) ([]*Build, int64, error)

	// Imported files
	CreateFile(ctx context.Context, file *ImportedFile) error
	GetFile(ctx context.Context, id int64) (*ImportedFile, error)
	ListFiles(ctx context.Context, filter FileFilter, page Page) ([]*ImportedFile, int64, error)

	// Search
	SearchProjects(ctx context.Context, query SearchQuery, page Page) ([]*Project, int64, error)
	SearchFiles(ctx context.Context, query SearchQuery, page Page) ([]*ImportedFile, int64, error)
}
