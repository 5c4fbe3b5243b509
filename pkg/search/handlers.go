package search

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// noSuchPageMessage is the 404 body for out-of-range pages
const noSuchPageMessage = "Sorry, no results on that page."

// Handlers exposes full-text search under /api/v1
type Handlers struct {
	service *Service
	links   api.Links
}

// NewHandlers creates search handlers
func NewHandlers(service *Service, links api.Links) *Handlers {
	return &Handlers{service: service, links: links}
}

// RegisterRoutes implements api.RouteRegistrar
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/project/search/", h.searchProjects).Methods(http.MethodGet)
	router.HandleFunc("/file/search/", h.searchFiles).Methods(http.MethodGet)
}

// ProjectResult is a rendered project plus its highlighted text
type ProjectResult struct {
	*api.ProjectResource
	Text string `json:"text"`
}

// FileResult is a rendered file plus its highlighted text
type FileResult struct {
	*api.FileResource
	Text string `json:"text"`
}

// Results is the search response body
type Results[T any] struct {
	Objects []T `json:"objects"`
}

func pageNumber(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNoSuchPage) {
		httputil.WriteNotFoundError(w, noSuchPageMessage)
		return
	}
	api.WriteStoreError(w, r, err)
}

// searchProjects handles GET /api/v1/project/search/?q=&page=
func (h *Handlers) searchProjects(w http.ResponseWriter, r *http.Request) {
	number, ok := pageNumber(r)
	if !ok {
		httputil.WriteNotFoundError(w, noSuchPageMessage)
		return
	}
	hits, err := h.service.Projects(r.Context(), r.URL.Query().Get("q"), number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := Results[ProjectResult]{Objects: make([]ProjectResult, 0, len(hits))}
	for _, hit := range hits {
		out.Objects = append(out.Objects, ProjectResult{ProjectResource: h.links.RenderProject(hit.Project), Text: hit.Text})
	}
	_ = httputil.WriteSuccess(w, out)
}

// searchFiles handles GET /api/v1/file/search/?q=&page=
func (h *Handlers) searchFiles(w http.ResponseWriter, r *http.Request) {
	number, ok := pageNumber(r)
	if !ok {
		httputil.WriteNotFoundError(w, noSuchPageMessage)
		return
	}
	hits, err := h.service.Files(r.Context(), r.URL.Query().Get("q"), number)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := Results[FileResult]{Objects: make([]FileResult, 0, len(hits))}
	for _, hit := range hits {
		out.Objects = append(out.Objects, FileResult{FileResource: h.links.RenderFile(hit.File, hit.Project), Text: hit.Text})
	}
	_ = httputil.WriteSuccess(w, out)
}
