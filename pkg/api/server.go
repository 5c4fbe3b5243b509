package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// RouteRegistrar is implemented by packages that mount extra routes under /api/v1
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Server serves the REST resources
type Server struct {
	storage Storage
	links   Links
	router  *mux.Router
	api     *mux.Router
}

// NewServer creates the API server. Registrars are mounted before the core
// resources so their fixed paths (e.g. /project/search/) win over slug routes.
func NewServer(storage Storage, links Links, registrars ...RouteRegistrar) *Server {
	router := mux.NewRouter().StrictSlash(true)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "no such resource")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s := &Server{
		storage: storage,
		links:   links,
		router:  router,
		api:     router.PathPrefix(APIPrefix).Subrouter(),
	}

	for _, registrar := range registrars {
		if registrar != nil {
			registrar.RegisterRoutes(s.api)
		}
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Users
	s.api.HandleFunc("/user/", s.listUsers).Methods(http.MethodGet)
	s.api.HandleFunc("/user/{username}/", s.getUser).Methods(http.MethodGet)

	// Projects
	s.api.HandleFunc("/project/", s.listProjects).Methods(http.MethodGet)
	s.api.HandleFunc("/project/", s.createProject).Methods(http.MethodPost)
	s.api.HandleFunc("/project/{slug}/", s.getProject).Methods(http.MethodGet)
	s.api.HandleFunc("/project/{slug}/", s.updateProject).Methods(http.MethodPut)

	// Builds; the numeric route must come before the project slug route
	s.api.HandleFunc("/build/", s.listBuilds).Methods(http.MethodGet)
	s.api.HandleFunc("/build/", s.createBuild).Methods(http.MethodPost)
	s.api.HandleFunc("/build/{id:[0-9]+}/", s.getBuild).Methods(http.MethodGet)
	s.api.HandleFunc("/build/{project_slug}/", s.listProjectBuilds).Methods(http.MethodGet)

	// Versions
	s.api.HandleFunc("/version/", s.listVersions).Methods(http.MethodGet)
	s.api.HandleFunc("/version/{id:[0-9]+}/", s.getVersion).Methods(http.MethodGet)
	s.api.HandleFunc("/version/{id:[0-9]+}/", s.updateVersion).Methods(http.MethodPut)
	s.api.HandleFunc("/version/{project_slug}/", s.listProjectVersions).Methods(http.MethodGet)

	// Imported files
	s.api.HandleFunc("/file/", s.listFiles).Methods(http.MethodGet)
	s.api.HandleFunc("/file/{id}/", s.getFile).Methods(http.MethodGet)
}

// Use installs middleware on the API routes
func (s *Server) Use(middleware ...mux.MiddlewareFunc) {
	s.api.Use(middleware...)
}

// Router exposes the root router for instrumentation
func (s *Server) Router() *mux.Router {
	return s.router
}

// Links returns the URL builder the server renders with
func (s *Server) Links() Links {
	return s.links
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
