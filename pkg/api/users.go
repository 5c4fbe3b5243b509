package api

import (
	"net/http"

	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// listUsers handles GET /api/v1/user/
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filter := UserFilter{Username: r.URL.Query().Get("username")}
	users, total, err := s.storage.ListUsers(r.Context(), filter, page)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	objects := make([]*UserResource, 0, len(users))
	for _, u := range users {
		objects = append(objects, s.links.RenderUser(u))
	}
	WriteList(w, r, page, total, objects)
}

// getUser handles GET /api/v1/user/{username}/
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.storage.GetUser(r.Context(), httputil.PathString(r, "username"))
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, s.links.RenderUser(user))
}
