// Package search implements project and documentation file search.
//
// Queries use a small syntax: bare words must all match, "quoted phrases"
// match verbatim and -words exclude results. Results come back twenty per
// page with a highlighted excerpt of the matching text.
package search
