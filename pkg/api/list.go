package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/platinummonkey/docsapi/pkg/httputil"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

const (
	// DefaultLimit is the page size when the client gives none
	DefaultLimit = 20
	// MaxLimit caps the page size; limit=0 asks for this many
	MaxLimit = 1000
)

// ListMeta describes the page returned by a list endpoint
type ListMeta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	TotalCount int64   `json:"total_count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// ListResponse is the envelope of every list endpoint
type ListResponse struct {
	Meta    ListMeta    `json:"meta"`
	Objects interface{} `json:"objects"`
}

// ParsePage reads limit and offset from the query string
func ParsePage(r *http.Request) (Page, error) {
	limit, err := httputil.ParseQueryInt(r, "limit", DefaultLimit)
	if err != nil || limit < 0 {
		return Page{}, errors.New("Invalid limit provided. Please provide a positive integer.")
	}
	if limit == 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		return Page{}, errors.New("Invalid offset provided. Please provide a positive integer.")
	}

	return Page{Limit: limit, Offset: offset}, nil
}

// NewListMeta builds the meta block, with next/previous links that keep the other query parameters
func NewListMeta(r *http.Request, page Page, total int64) ListMeta {
	meta := ListMeta{
		Limit:      page.Limit,
		Offset:     page.Offset,
		TotalCount: total,
	}

	// offset+limit < total, written so a huge offset cannot overflow
	if int64(page.Offset) < total-int64(page.Limit) {
		next := pageLink(r, page.Limit, page.Offset+page.Limit)
		meta.Next = &next
	}
	if page.Offset > 0 {
		prev := page.Offset - page.Limit
		if prev < 0 {
			prev = 0
		}
		previous := pageLink(r, page.Limit, prev)
		meta.Previous = &previous
	}
	return meta
}

func pageLink(r *http.Request, limit, offset int) string {
	q := url.Values{}
	for k, v := range r.URL.Query() {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return r.URL.Path + "?" + q.Encode()
}

// WriteList writes a paged list envelope
func WriteList(w http.ResponseWriter, r *http.Request, page Page, total int64, objects interface{}) {
	_ = httputil.WriteSuccess(w, ListResponse{
		Meta:    NewListMeta(r, page, total),
		Objects: objects,
	})
}

// WriteStoreError maps storage errors onto HTTP responses
func WriteStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidFilter):
		httputil.WriteNotFoundError(w, ErrInvalidFilter.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, ErrAlreadyExists):
		httputil.WriteErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		observability.FromContext(r.Context()).WithError(err).Error("storage error")
		httputil.WriteInternalError(w)
	}
}

// ProjectGetter loads a project by primary key
type ProjectGetter interface {
	GetProjectByID(ctx context.Context, id int64) (*Project, error)
}

// ProjectSet memoizes project lookups for the lifetime of one request
type ProjectSet struct {
	getter ProjectGetter
	byID   map[int64]*Project
}

// NewProjectSet creates an empty ProjectSet
func NewProjectSet(getter ProjectGetter) *ProjectSet {
	return &ProjectSet{getter: getter, byID: make(map[int64]*Project)}
}

// Get returns the project with the given ID, loading it on first use
func (ps *ProjectSet) Get(ctx context.Context, id int64) (*Project, error) {
	if p, ok := ps.byID[id]; ok {
		return p, nil
	}
	p, err := ps.getter.GetProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ps.byID[id] = p
	return p, nil
}
