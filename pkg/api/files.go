package api

import (
	"net/http"

	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// listFiles handles GET /api/v1/file/
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filter := FileFilter{ProjectSlug: r.URL.Query().Get("project__slug")}
	files, total, err := s.storage.ListFiles(r.Context(), filter, page)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	projects := NewProjectSet(s.storage)
	objects := make([]*FileResource, 0, len(files))
	for _, f := range files {
		project, err := projects.Get(r.Context(), f.ProjectID)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		objects = append(objects, s.links.RenderFile(f, project))
	}
	WriteList(w, r, page, total, objects)
}

// getFile handles GET /api/v1/file/{id}/
func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		WriteStoreError(w, r, ErrInvalidFilter)
		return
	}
	file, err := s.storage.GetFile(r.Context(), id)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	project, err := s.storage.GetProjectByID(r.Context(), file.ProjectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderFile(file, project))
}
