package api

import (
	"fmt"
	"strconv"
	"strings"
)

// APIPrefix is the mount point of every resource
const APIPrefix = "/api/v1"

// Links builds canonical URLs and resource URIs
type Links struct {
	// ProductionDomain hosts project subdomains, e.g. "readthedocs.org"
	ProductionDomain string
	// DocsBaseURL prefixes served documentation, e.g. "https://docs.example.com"
	DocsBaseURL string
}

func (l Links) base() string {
	return strings.TrimRight(l.DocsBaseURL, "/")
}

// VersionURL is the canonical URL of a built version's docs
func (l Links) VersionURL(projectSlug, versionSlug string) string {
	return fmt.Sprintf("%s/docs/%s/en/%s/", l.base(), projectSlug, versionSlug)
}

// FileURL is the canonical URL of one rendered page
func (l Links) FileURL(projectSlug, versionSlug, path string) string {
	return l.VersionURL(projectSlug, versionSlug) + strings.TrimLeft(path, "/")
}

// ProjectURL is the project's absolute URL on the site
func (l Links) ProjectURL(slug string) string {
	return "/projects/" + slug + "/"
}

// Subdomain is the project's docs subdomain
func (l Links) Subdomain(slug string) string {
	return fmt.Sprintf("http://%s.%s/", slug, l.ProductionDomain)
}

// UserURI is a user's resource URI
func (l Links) UserURI(username string) string {
	return APIPrefix + "/user/" + username + "/"
}

// ProjectURI is a project's resource URI
func (l Links) ProjectURI(slug string) string {
	return APIPrefix + "/project/" + slug + "/"
}

// VersionURI is a version's resource URI
func (l Links) VersionURI(id int64) string {
	return APIPrefix + "/version/" + strconv.FormatInt(id, 10) + "/"
}

// BuildURI is a build's resource URI
func (l Links) BuildURI(id int64) string {
	return APIPrefix + "/build/" + strconv.FormatInt(id, 10) + "/"
}

// FileURI is an imported file's resource URI
func (l Links) FileURI(id int64) string {
	return APIPrefix + "/file/" + strconv.FormatInt(id, 10) + "/"
}

// ProjectSlugFromRef accepts a project resource URI or a bare slug
func ProjectSlugFromRef(ref string) string {
	ref = strings.TrimPrefix(ref, APIPrefix+"/project/")
	return strings.Trim(ref, "/")
}

// VersionIDFromRef accepts a version resource URI or a bare numeric ID
func VersionIDFromRef(ref string) (int64, error) {
	ref = strings.Trim(strings.TrimPrefix(ref, APIPrefix+"/version/"), "/")
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, ErrInvalidFilter
	}
	return id, nil
}
