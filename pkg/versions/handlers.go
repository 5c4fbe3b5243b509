package versions

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// Handlers exposes the resolver under /api/v1/version/
type Handlers struct {
	resolver *Resolver
	links    api.Links
}

// NewHandlers creates the version resolution handlers
func NewHandlers(resolver *Resolver, links api.Links) *Handlers {
	return &Handlers{resolver: resolver, links: links}
}

// RegisterRoutes implements api.RouteRegistrar
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/version/{project_slug}/highest/", h.highest).Methods(http.MethodGet)
	// base may itself contain slashes (branch names such as release/1.0)
	router.HandleFunc("/version/{project_slug}/highest/{base:.+}/", h.highest).Methods(http.MethodGet)
	router.HandleFunc("/version/{project_slug}/{version_slug}/build", h.build).Methods(http.MethodGet, http.MethodPost)
}

// ComparisonResponse is the JSON body of the highest endpoints
type ComparisonResponse struct {
	Project   *api.VersionResource `json:"project"`
	Version   *ParsedVersion       `json:"version"`
	IsHighest bool                 `json:"is_highest"`
	URL       string               `json:"url,omitempty"`
	Slug      string               `json:"slug,omitempty"`
}

// highest handles GET /api/v1/version/{project_slug}/highest/[{base}/]
func (h *Handlers) highest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cmp, err := h.resolver.CompareToBase(r.Context(), vars["project_slug"], vars["base"])
	if err != nil {
		api.WriteStoreError(w, r, err)
		return
	}

	resp := ComparisonResponse{
		Version:   cmp.Parsed,
		IsHighest: cmp.IsHighest,
		URL:       cmp.URL,
		Slug:      cmp.Slug,
	}
	if cmp.Highest != nil {
		resp.Project = h.links.RenderVersion(cmp.Highest, cmp.Project)
	}
	_ = httputil.WriteSuccess(w, resp)
}

// build handles GET|POST /api/v1/version/{project_slug}/{version_slug}/build
func (h *Handlers) build(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handle, err := h.resolver.TriggerBuild(r.Context(), vars["project_slug"], vars["version_slug"])
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.WriteStoreError(w, r, err)
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("Failed to trigger build")
		httputil.WriteServiceUnavailable(w, "build queue unavailable")
		return
	}
	_ = httputil.WriteSuccess(w, handle)
}
