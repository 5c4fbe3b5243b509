package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/version/pip/highest/1.0/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"project": {"id": 3, "slug": "2.0"}, "version": "2.0", "is_highest": false,
			"url": "https://docs.example.com/docs/pip/en/2.0/", "slug": "2.0"}`))
	}))
	defer srv.Close()

	cmp, err := New(srv.URL + "/").Highest(context.Background(), "pip", "1.0")
	require.NoError(t, err)
	assert.False(t, cmp.IsHighest)
	require.NotNil(t, cmp.Version)
	assert.Equal(t, "2.0", *cmp.Version)
	assert.Equal(t, "2.0", cmp.Slug)
	require.NotNil(t, cmp.Project)
	assert.Equal(t, int64(3), cmp.Project.ID)
}

func TestHighestBranchBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/version/pip/highest/release%2F1.0/", r.URL.EscapedPath())
		assert.Equal(t, "/api/v1/version/pip/highest/release/1.0/", r.URL.Path)
		w.Write([]byte(`{"project": null, "version": "2.0", "is_highest": true}`))
	}))
	defer srv.Close()

	cmp, err := New(srv.URL).Highest(context.Background(), "pip", "release/1.0")
	require.NoError(t, err)
	assert.True(t, cmp.IsHighest)
}

func TestHighestWithoutBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/version/empty/highest/", r.URL.Path)
		w.Write([]byte(`{"project": null, "version": null, "is_highest": true}`))
	}))
	defer srv.Close()

	cmp, err := New(srv.URL).Highest(context.Background(), "empty", "")
	require.NoError(t, err)
	assert.True(t, cmp.IsHighest)
	assert.Nil(t, cmp.Version)
	assert.Nil(t, cmp.Project)
}

func TestTriggerBuild(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantMethod string
		wantUser   string
	}{
		{name: "anonymous", wantMethod: http.MethodGet},
		{name: "authenticated", opts: []Option{WithCredentials("eric", "pw")}, wantMethod: http.MethodPost, wantUser: "eric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, "/api/v1/version/pip/latest/build", r.URL.Path)
				user, _, _ := r.BasicAuth()
				assert.Equal(t, tt.wantUser, user)
				w.Write([]byte(`{"building": true}`))
			}))
			defer srv.Close()

			handle, err := New(srv.URL, tt.opts...).TriggerBuild(context.Background(), "pip", "latest")
			require.NoError(t, err)
			assert.True(t, handle.Building)
		})
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "project not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithHTTPClient(srv.Client())).Highest(context.Background(), "nope", "")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "project not found", apiErr.Message)
}

func TestAPIErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).TriggerBuild(context.Background(), "pip", "latest")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Service Unavailable", apiErr.Message)
}
