// Package httputil holds the small HTTP helpers shared by every resource
// handler: JSON writers with a uniform {"error": ...} body, request parsing,
// and the request ID, logging and recovery middleware.
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//	)(router)
package httputil
