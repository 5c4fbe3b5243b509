package api

import "time"

// UserResource is the public view of a User
type UserResource struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	LastLogin   *time.Time `json:"last_login"`
	ResourceURI string     `json:"resource_uri"`
}

// ProjectResource is the public view of a Project
type ProjectResource struct {
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
	Created           time.Time `json:"created"`
	Modified          time.Time `json:"modified"`
	Subdomain         string    `json:"subdomain"`
	AbsoluteURL       string    `json:"absolute_url"`
	ResourceURI       string    `json:"resource_uri"`
}

// VersionResource is the public view of a Version with its project embedded
type VersionResource struct {
	ID          int64            `json:"id"`
	Project     *ProjectResource `json:"project"`
	Slug        string           `json:"slug"`
	Identifier  string           `json:"identifier"`
	VerboseName string           `json:"verbose_name"`
	Active      bool             `json:"active"`
	Built       bool             `json:"built"`
	ResourceURI string           `json:"resource_uri"`
}

// BuildResource is the public view of a Build
type BuildResource struct {
	ID          int64     `json:"id"`
	Project     string    `json:"project"`
	Version     *string   `json:"version"`
	Type        string    `json:"type"`
	State       string    `json:"state"`
	Success     bool      `json:"success"`
	Setup       string    `json:"setup"`
	SetupError  string    `json:"setup_error"`
	Output      string    `json:"output"`
	Error       string    `json:"error"`
	Date        time.Time `json:"date"`
	ResourceURI string    `json:"resource_uri"`
}

// FileResource is the public view of an ImportedFile; md5 and slug stay hidden
type FileResource struct {
	ID          int64            `json:"id"`
	Project     *ProjectResource `json:"project"`
	Version     string           `json:"version"`
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	AbsoluteURL string           `json:"absolute_url"`
	ResourceURI string           `json:"resource_uri"`
}

// RenderUser builds the public view of u
func (l Links) RenderUser(u *User) *UserResource {
	return &UserResource{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		LastLogin:   u.LastLogin,
		ResourceURI: l.UserURI(u.Username),
	}
}

// RenderProject builds the public view of p
func (l Links) RenderProject(p *Project) *ProjectResource {
	if p == nil {
		return nil
	}
	users := make([]string, 0, len(p.Users))
	for _, username := range p.Users {
		users = append(users, l.UserURI(username))
	}
	return &ProjectResource{
		ID:                p.ID,
		Slug:              p.Slug,
		Name:              p.Name,
		Description:       p.Description,
		Repo:              p.Repo,
		RepoType:          p.RepoType,
		DefaultVersion:    p.DefaultVersion,
		DefaultBranch:     p.DefaultBranch,
		DocumentationType: p.DocumentationType,
		ProjectURL:        p.ProjectURL,
		Users:             users,
		Created:           p.CreatedAt,
		Modified:          p.UpdatedAt,
		Subdomain:         l.Subdomain(p.Slug),
		AbsoluteURL:       l.ProjectURL(p.Slug),
		ResourceURI:       l.ProjectURI(p.Slug),
	}
}

// RenderVersion builds the public view of v, embedding p
func (l Links) RenderVersion(v *Version, p *Project) *VersionResource {
	if v == nil {
		return nil
	}
	return &VersionResource{
		ID:          v.ID,
		Project:     l.RenderProject(p),
		Slug:        v.Slug,
		Identifier:  v.Identifier,
		VerboseName: v.VerboseName,
		Active:      v.Active,
		Built:       v.Built,
		ResourceURI: l.VersionURI(v.ID),
	}
}

// RenderBuild builds the public view of b
func (l Links) RenderBuild(b *Build) *BuildResource {
	var version *string
	if b.VersionID != nil {
		uri := l.VersionURI(*b.VersionID)
		version = &uri
	}
	return &BuildResource{
		ID:          b.ID,
		Project:     l.ProjectURI(b.ProjectSlug),
		Version:     version,
		Type:        b.Type,
		State:       b.State,
		Success:     b.Success,
		Setup:       b.Setup,
		SetupError:  b.SetupError,
		Output:      b.Output,
		Error:       b.Error,
		Date:        b.Date,
		ResourceURI: l.BuildURI(b.ID),
	}
}

// RenderFile builds the public view of f, embedding p
func (l Links) RenderFile(f *ImportedFile, p *Project) *FileResource {
	return &FileResource{
		ID:          f.ID,
		Project:     l.RenderProject(p),
		Version:     l.VersionURI(f.VersionID),
		Name:        f.Name,
		Path:        f.Path,
		AbsoluteURL: l.FileURL(f.ProjectSlug, f.VersionSlug, f.Path),
		ResourceURI: l.FileURI(f.ID),
	}
}
