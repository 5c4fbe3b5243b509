package anchors

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

// Handlers exposes anchor lookup under /api/v1/file/anchor/
type Handlers struct {
	finder *Finder
}

// NewHandlers creates anchor handlers
func NewHandlers(finder *Finder) *Handlers {
	return &Handlers{finder: finder}
}

// RegisterRoutes implements api.RouteRegistrar
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/file/anchor/", h.anchor).Methods(http.MethodGet)
}

// Response is the anchor lookup body
type Response struct {
	Objects []string `json:"objects"`
}

func (h *Handlers) anchor(w http.ResponseWriter, r *http.Request) {
	urls, err := h.finder.Find(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Anchor lookup failed")
		httputil.WriteServiceUnavailable(w, "anchor index unavailable")
		return
	}
	_ = httputil.WriteSuccess(w, Response{Objects: urls})
}
