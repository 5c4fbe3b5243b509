package api

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/docsapi/pkg/contextkeys"
	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// Project defaults applied on create
const (
	DefaultRepoType          = "git"
	DefaultVersionSlug       = "latest"
	DefaultDocumentationType = "sphinx"
)

// ProjectInput is the writable subset of a project
type ProjectInput struct {
	Name              string  `json:"name"`
	Slug              string  `json:"slug"`
	Description       *string `json:"description"`
	Repo              *string `json:"repo"`
	RepoType          *string `json:"repo_type"`
	DefaultVersion    *string `json:"default_version"`
	DefaultBranch     *string `json:"default_branch"`
	DocumentationType *string `json:"documentation_type"`
	ProjectURL        *string `json:"project_url"`
}

func (in ProjectInput) apply(p *Project) {
	if in.Name != "" {
		p.Name = in.Name
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Description, in.Description)
	set(&p.Repo, in.Repo)
	set(&p.RepoType, in.RepoType)
	set(&p.DefaultVersion, in.DefaultVersion)
	set(&p.DefaultBranch, in.DefaultBranch)
	set(&p.DocumentationType, in.DocumentationType)
	set(&p.ProjectURL, in.ProjectURL)
}

// Slugify lowercases name and collapses every run of other characters to a single dash
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// listProjects handles GET /api/v1/project/
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	q := r.URL.Query()
	filter := ProjectFilter{
		Slug:     q.Get("slug"),
		Username: q.Get("users__username"),
	}
	projects, total, err := s.storage.ListProjects(r.Context(), filter, page)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	objects := make([]*ProjectResource, 0, len(projects))
	for _, p := range projects {
		objects = append(objects, s.links.RenderProject(p))
	}
	WriteList(w, r, page, total, objects)
}

// getProject handles GET /api/v1/project/{slug}/
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.storage.GetProject(r.Context(), httputil.PathString(r, "slug"))
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderProject(project))
}

// createProject handles POST /api/v1/project/. The authenticated user always becomes the owner.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	owner := contextkeys.GetUsername(r.Context())
	if owner == "" {
		httputil.WriteUnauthorized(w, "docsapi", "authentication required")
		return
	}

	var in ProjectInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	project := &Project{
		Slug:              in.Slug,
		RepoType:          DefaultRepoType,
		DefaultVersion:    DefaultVersionSlug,
		DocumentationType: DefaultDocumentationType,
		Users:             []string{owner},
	}
	in.apply(project)
	if project.Slug == "" {
		project.Slug = Slugify(project.Name)
	}
	if project.Slug == "" {
		httputil.WriteBadRequest(w, "name must contain at least one letter or digit")
		return
	}

	if err := s.storage.CreateProject(r.Context(), project); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	observability.FromContext(r.Context()).WithField("project", project.Slug).Info("project created")
	_ = httputil.WriteCreated(w, s.links.ProjectURI(project.Slug), s.links.RenderProject(project))
}

// updateProject handles PUT /api/v1/project/{slug}/. The slug is immutable.
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.storage.GetProject(r.Context(), httputil.PathString(r, "slug"))
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	var in ProjectInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	in.apply(project)

	if err := s.storage.UpdateProject(r.Context(), project); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderProject(project))
}
