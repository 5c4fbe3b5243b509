package api

import (
	"net/http"

	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// VersionInput is the body of PUT /api/v1/version/{id}/
type VersionInput struct {
	Active      *bool   `json:"active"`
	VerboseName *string `json:"verbose_name"`
	Identifier  *string `json:"identifier"`
}

// listVersions handles GET /api/v1/version/
func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	active, err := httputil.ParseQueryBool(r, "active")
	if err != nil {
		WriteStoreError(w, r, ErrInvalidFilter)
		return
	}
	q := r.URL.Query()
	s.writeVersions(w, r, VersionFilter{
		ProjectSlug: q.Get("project__slug"),
		Slug:        q.Get("slug"),
		Active:      active,
	})
}

// listProjectVersions handles GET /api/v1/version/{project_slug}/
func (s *Server) listProjectVersions(w http.ResponseWriter, r *http.Request) {
	slug := httputil.PathString(r, "project_slug")
	if _, err := s.storage.GetProject(r.Context(), slug); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	active, err := httputil.ParseQueryBool(r, "active")
	if err != nil {
		WriteStoreError(w, r, ErrInvalidFilter)
		return
	}
	s.writeVersions(w, r, VersionFilter{ProjectSlug: slug, Active: active})
}

func (s *Server) writeVersions(w http.ResponseWriter, r *http.Request, filter VersionFilter) {
	page, err := ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	versions, total, err := s.storage.ListVersions(r.Context(), filter, page)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	projects := NewProjectSet(s.storage)
	objects := make([]*VersionResource, 0, len(versions))
	for _, v := range versions {
		project, err := projects.Get(r.Context(), v.ProjectID)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		objects = append(objects, s.links.RenderVersion(v, project))
	}
	WriteList(w, r, page, total, objects)
}

// getVersion handles GET /api/v1/version/{id}/
func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	version, project, ok := s.loadVersion(w, r)
	if !ok {
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderVersion(version, project))
}

// updateVersion handles PUT /api/v1/version/{id}/
func (s *Server) updateVersion(w http.ResponseWriter, r *http.Request) {
	version, project, ok := s.loadVersion(w, r)
	if !ok {
		return
	}

	var in VersionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if in.Active != nil {
		version.Active = *in.Active
	}
	if in.VerboseName != nil {
		version.VerboseName = *in.VerboseName
	}
	if in.Identifier != nil {
		version.Identifier = *in.Identifier
	}

	if err := s.storage.UpdateVersion(r.Context(), version); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderVersion(version, project))
}

func (s *Server) loadVersion(w http.ResponseWriter, r *http.Request) (*Version, *Project, bool) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		WriteStoreError(w, r, ErrInvalidFilter)
		return nil, nil, false
	}
	version, err := s.storage.GetVersionByID(r.Context(), id)
	if err != nil {
		WriteStoreError(w, r, err)
		return nil, nil, false
	}
	project, err := s.storage.GetProjectByID(r.Context(), version.ProjectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return nil, nil, false
	}
	return version, project, true
}
