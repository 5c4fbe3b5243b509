// Package middleware holds the API's authentication and throttling layers.
//
// PostAuthentication keeps reads anonymous and requires HTTP Basic
// credentials (bcrypt-hashed in storage) for writes. Throttle and
// DistributedThrottle cap requests per client, keyed by username when
// authenticated and by IP otherwise:
//
//	srv.Use(middleware.PostAuthentication(store))
//	srv.Use(middleware.NewThrottle(middleware.DefaultThrottleConfig()).Middleware)
package middleware
