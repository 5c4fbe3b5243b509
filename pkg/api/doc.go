// Package api serves the documentation platform's REST resources: users,
// projects, versions, builds and imported files under /api/v1.
//
// Every list endpoint answers with a paged envelope:
//
//	{"meta": {"limit": 20, "offset": 0, "total_count": 3, "next": null, "previous": null},
//	 "objects": [...]}
//
// Persistence goes through the Storage interface (see pkg/storage/sqlstore).
// Packages that add routes of their own (version resolution, search, anchors)
// implement RouteRegistrar and are passed to NewServer:
//
//	srv := api.NewServer(store, links,
//		versions.NewHandlers(resolver, links),
//		search.NewHandlers(searchService, links),
//	)
//	srv.Use(middleware.PostAuthentication(store))
//
// Filter values of the wrong type answer 404 with
// "Invalid resource lookup data provided (mismatched type)".
package api
