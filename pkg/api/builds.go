package api

import (
	"net/http"
	"time"

	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// BuildInput is the body of POST /api/v1/build/. Project and version take
// resource URIs or a bare slug / ID.
type BuildInput struct {
	Project    string `json:"project"`
	Version    string `json:"version"`
	Type       string `json:"type"`
	State      string `json:"state"`
	Success    bool   `json:"success"`
	Setup      string `json:"setup"`
	SetupError string `json:"setup_error"`
	Output     string `json:"output"`
	Error      string `json:"error"`
}

// listBuilds handles GET /api/v1/build/
func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	s.writeBuilds(w, r, BuildFilter{ProjectSlug: r.URL.Query().Get("project__slug")})
}

// listProjectBuilds handles GET /api/v1/build/{project_slug}/
func (s *Server) listProjectBuilds(w http.ResponseWriter, r *http.Request) {
	slug := httputil.PathString(r, "project_slug")
	if _, err := s.storage.GetProject(r.Context(), slug); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	s.writeBuilds(w, r, BuildFilter{ProjectSlug: slug})
}

func (s *Server) writeBuilds(w http.ResponseWriter, r *http.Request, filter BuildFilter) {
	page, err := ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	builds, total, err := s.storage.ListBuilds(r.Context(), filter, page)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	objects := make([]*BuildResource, 0, len(builds))
	for _, b := range builds {
		objects = append(objects, s.links.RenderBuild(b))
	}
	WriteList(w, r, page, total, objects)
}

// getBuild handles GET /api/v1/build/{id}/
func (s *Server) getBuild(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		WriteStoreError(w, r, ErrInvalidFilter)
		return
	}
	build, err := s.storage.GetBuild(r.Context(), id)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderBuild(build))
}

// createBuild handles POST /api/v1/build/
func (s *Server) createBuild(w http.ResponseWriter, r *http.Request) {
	var in BuildInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	slug := ProjectSlugFromRef(in.Project)
	if slug == "" {
		httputil.WriteBadRequest(w, "project is required")
		return
	}
	project, err := s.storage.GetProject(r.Context(), slug)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	build := &Build{
		ProjectID:   project.ID,
		ProjectSlug: project.Slug,
		Type:        in.Type,
		State:       in.State,
		Success:     in.Success,
		Setup:       in.Setup,
		SetupError:  in.SetupError,
		Output:      in.Output,
		Error:       in.Error,
		Date:        time.Now().UTC(),
	}
	if build.Type == "" {
		build.Type = "html"
	}
	if build.State == "" {
		build.State = BuildStateFinished
	}

	if in.Version != "" {
		versionID, err := VersionIDFromRef(in.Version)
		if err != nil {
			httputil.WriteBadRequest(w, "version must be a version resource URI or ID")
			return
		}
		version, err := s.storage.GetVersionByID(r.Context(), versionID)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		if version.ProjectID != project.ID {
			httputil.WriteBadRequest(w, "version does not belong to project")
			return
		}
		build.VersionID = &version.ID
	}

	if err := s.storage.CreateBuild(r.Context(), build); err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, s.links.BuildURI(build.ID), s.links.RenderBuild(build))
}
