package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/api/apitest"
	"github.com/platinummonkey/docsapi/pkg/contextkeys"
)

var testLinks = api.Links{ProductionDomain: "readthedocs.org", DocsBaseURL: "https://docs.example.com"}

type fixture struct {
	store   *apitest.Store
	server  *api.Server
	project *api.Project
	v10     *api.Version
	v20     *api.Version
}

func newFixture(t *testing.T, registrars ...api.RouteRegistrar) *fixture {
	t.Helper()
	ctx := context.Background()
	store := apitest.NewStore()

	require.NoError(t, store.CreateUser(ctx, &api.User{Username: "eric", FirstName: "Eric", Email: "eric@example.com", PasswordHash: "x"}))
	require.NoError(t, store.CreateUser(ctx, &api.User{Username: "bob"}))

	project := &api.Project{Slug: "pip", Name: "Pip", Description: "package installer", Users: []string{"eric"}, Path: "/srv/pip", Skip: true}
	require.NoError(t, store.CreateProject(ctx, project))
	require.NoError(t, store.CreateProject(ctx, &api.Project{Slug: "django", Name: "Django", Users: []string{"bob"}}))

	v10 := &api.Version{ProjectID: project.ID, Slug: "1.0", Identifier: "abc", VerboseName: "1.0", Active: true}
	v20 := &api.Version{ProjectID: project.ID, Slug: "2.0", Identifier: "def", VerboseName: "2.0", Active: true}
	latest := &api.Version{ProjectID: project.ID, Slug: "latest", Identifier: "master", VerboseName: "latest", Active: false}
	for _, v := range []*api.Version{v10, v20, latest} {
		require.NoError(t, store.CreateVersion(ctx, v))
	}

	server := api.NewServer(store, testLinks, registrars...)
	// stand-in for PostAuthentication
	server.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get("X-Test-User"); user != "" {
				r = r.WithContext(contextkeys.WithUsername(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})

	return &fixture{store: store, server: server, project: project, v10: v10, v20: v20}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, user string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) (api.ListMeta, []map[string]interface{}) {
	t.Helper()
	var resp struct {
		Meta    api.ListMeta             `json:"meta"`
		Objects []map[string]interface{} `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Meta, resp.Objects
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj), rec.Body.String())
	return obj
}

func TestServer_UnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/nothing/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodDelete, "/api/v1/project/pip/", nil, "eric")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type searchStub struct{}

func (searchStub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/project/search/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}).Methods(http.MethodGet)
}

func TestServer_RegistrarsWinOverSlugRoutes(t *testing.T) {
	f := newFixture(t, searchStub{})
	rec := f.do(t, http.MethodGet, "/api/v1/project/search/", nil, "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/user/", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		meta, objects := decodeList(t, rec)
		assert.Equal(t, int64(2), meta.TotalCount)
		require.Len(t, objects, 2)
		assert.Equal(t, "eric", objects[0]["username"])
		assert.NotContains(t, objects[0], "email")
		assert.NotContains(t, objects[0], "password")
	})

	t.Run("filter by username", func(t *testing.T) {
		_, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/user/?username=bob", nil, ""))
		require.Len(t, objects, 1)
		assert.Equal(t, "/api/v1/user/bob/", objects[0]["resource_uri"])
	})

	t.Run("detail", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/user/eric/", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Eric", decodeObject(t, rec)["first_name"])
	})

	t.Run("missing", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/user/nobody/", nil, "").Code)
	})
}

func TestProjects_Read(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/project/pip/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	obj := decodeObject(t, rec)
	assert.Equal(t, "http://pip.readthedocs.org/", obj["subdomain"])
	assert.Equal(t, "/projects/pip/", obj["absolute_url"])
	assert.Equal(t, "/api/v1/project/pip/", obj["resource_uri"])
	assert.Equal(t, []interface{}{"/api/v1/user/eric/"}, obj["users"])
	for _, hidden := range []string{"path", "skip", "featured", "use_virtualenv"} {
		assert.NotContains(t, obj, hidden)
	}

	_, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/project/?users__username=bob", nil, ""))
	require.Len(t, objects, 1)
	assert.Equal(t, "django", objects[0]["slug"])

	_, objects = decodeList(t, f.do(t, http.MethodGet, "/api/v1/project/?slug=pip", nil, ""))
	require.Len(t, objects, 1)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/project/nope/", nil, "").Code)
}

func TestProjects_Create(t *testing.T) {
	f := newFixture(t)

	t.Run("owner is the authenticated user", func(t *testing.T) {
		body := map[string]interface{}{"name": "Read The Docs", "repo": "https://github.com/rtfd/readthedocs.org"}
		rec := f.do(t, http.MethodPost, "/api/v1/project/", body, "bob")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "/api/v1/project/read-the-docs/", rec.Header().Get("Location"))

		stored, err := f.store.GetProject(context.Background(), "read-the-docs")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, stored.Users)
		assert.Equal(t, api.DefaultRepoType, stored.RepoType)
		assert.Equal(t, api.DefaultVersionSlug, stored.DefaultVersion)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/project/", map[string]string{"name": "Pip"}, "bob")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("name required", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/project/", map[string]string{"repo": "x"}, "bob")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/project/", map[string]string{"name": "Anon"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProjects_Update(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/project/pip/", map[string]string{
		"description":  "The PyPA recommended tool",
		"slug":         "renamed",
		"resource_uri": "/api/v1/project/pip/",
	}, "eric")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := f.store.GetProject(context.Background(), "pip")
	require.NoError(t, err)
	assert.Equal(t, "The PyPA recommended tool", stored.Description)
	assert.Equal(t, "Pip", stored.Name)
	assert.Equal(t, "/srv/pip", stored.Path)
}

func TestVersions(t *testing.T) {
	f := newFixture(t)

	t.Run("project embedded", func(t *testing.T) {
		meta, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/version/?project__slug=pip", nil, ""))
		assert.Equal(t, int64(3), meta.TotalCount)
		project, ok := objects[0]["project"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "pip", project["slug"])
	})

	t.Run("active filter", func(t *testing.T) {
		_, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/version/pip/?active=true", nil, ""))
		assert.Len(t, objects, 2)
	})

	t.Run("mismatched filter type", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/version/?active=maybe", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "mismatched type")
	})

	t.Run("unknown project", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/version/nope/", nil, "").Code)
	})

	t.Run("update", func(t *testing.T) {
		path := testLinks.VersionURI(f.v10.ID)
		rec := f.do(t, http.MethodPut, path, map[string]interface{}{"active": false, "verbose_name": "One"}, "eric")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		stored, err := f.store.GetVersionByID(context.Background(), f.v10.ID)
		require.NoError(t, err)
		assert.False(t, stored.Active)
		assert.Equal(t, "One", stored.VerboseName)
		assert.Equal(t, "1.0", stored.Slug)
	})
}

func TestBuilds(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{
		"project": "/api/v1/project/pip/",
		"version": testLinks.VersionURI(f.v20.ID),
		"success": true,
		"output":  "ok",
	}
	rec := f.do(t, http.MethodPost, "/api/v1/build/", body, "eric")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeObject(t, rec)
	assert.Equal(t, "/api/v1/project/pip/", created["project"])
	assert.Equal(t, testLinks.VersionURI(f.v20.ID), created["version"])

	uri := created["resource_uri"].(string)
	rec = f.do(t, http.MethodGet, uri, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeObject(t, rec)["output"])

	_, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/build/pip/", nil, ""))
	assert.Len(t, objects, 1)

	_, objects = decodeList(t, f.do(t, http.MethodGet, "/api/v1/build/?project__slug=django", nil, ""))
	assert.Empty(t, objects)

	t.Run("unknown project", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/build/", map[string]string{"project": "nope"}, "eric")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad version ref", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/build/", map[string]string{"project": "pip", "version": "abc"}, "eric")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFiles(t *testing.T) {
	f := newFixture(t)
	file := &api.ImportedFile{VersionID: f.v20.ID, Name: "Installation", Slug: "installation", Path: "install.html", MD5: "deadbeef", Content: "pip install"}
	require.NoError(t, f.store.CreateFile(context.Background(), file))

	rec := f.do(t, http.MethodGet, testLinks.FileURI(file.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	obj := decodeObject(t, rec)
	assert.NotContains(t, obj, "md5")
	assert.NotContains(t, obj, "slug")
	assert.Equal(t, "https://docs.example.com/docs/pip/en/2.0/install.html", obj["absolute_url"])

	_, objects := decodeList(t, f.do(t, http.MethodGet, "/api/v1/file/?project__slug=pip", nil, ""))
	assert.Len(t, objects, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/file/abc/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "mismatched type")
}

func TestStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection reset")

	rec := f.do(t, http.MethodGet, "/api/v1/project/", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
