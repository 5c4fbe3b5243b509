// Package cli implements docsctl, the command line client of the docs API.
//
//	docsctl highest pip            # highest active version of pip
//	docsctl highest pip 1.0        # is 1.0 the highest?
//	docsctl -u eric --password secret build pip latest
//
// Global flags --server, --user and --password may also come from
// DOCSCTL_SERVER, DOCSCTL_USER and DOCSCTL_PASSWORD. --output selects text
// or json.
package cli
