package api

import "time"

// User is an account that can own projects and authenticate writes
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `json:"-"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
}

// Project is a documented software project, addressed by its slug
type Project struct {
	ID                int64     `json:"id"`
	Slug              string    `json:"slug"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Repo              string    `json:"repo"`
	RepoType          string    `json:"repo_type"`
	DefaultVersion    string    `json:"default_version"`
	DefaultBranch     string    `json:"default_branch"`
	DocumentationType string    `json:"documentation_type"`
	ProjectURL        string    `json:"project_url"`
	Users             []string  `json:"users"`
	CreatedAt         time.Time `json:"created"`
	UpdatedAt         time.Time `json:"modified"`

	// Internal build settings, never exposed
	Path          string `json:"-"`
	Skip          bool   `json:"-"`
	Featured      bool   `json:"-"`
	UseVirtualenv bool   `json:"-"`
}

// Version is a buildable ref of a project. Only active versions take part
// in highest-version resolution.
type Version struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"-"`
	ProjectSlug string `json:"-"`
	Slug        string `json:"slug"`
	Identifier  string `json:"identifier"`
	VerboseName string `json:"verbose_name"`
	Active      bool   `json:"active"`
	Built       bool   `json:"built"`
}

// Build states
const (
	BuildStateTriggered = "triggered"
	BuildStateBuilding  = "building"
	BuildStateFinished  = "finished"
)

// Build is one documentation build attempt
type Build struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"-"`
	ProjectSlug string    `json:"-"`
	VersionID   *int64    `json:"-"`
	Type        string    `json:"type"`
	State       string    `json:"state"`
	Success     bool      `json:"success"`
	Setup       string    `json:"setup"`
	SetupError  string    `json:"setup_error"`
	Output      string    `json:"output"`
	Error       string    `json:"error"`
	Date        time.Time `json:"date"`
}

// ImportedFile is a rendered documentation page indexed for search
type ImportedFile struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"-"`
	ProjectSlug string `json:"-"`
	VersionID   int64  `json:"-"`
	VersionSlug string `json:"-"`
	Name        string `json:"name"`
	Slug        string `json:"-"`
	Path        string `json:"path"`
	MD5         string `json:"-"`
	Content     string `json:"-"`
}
