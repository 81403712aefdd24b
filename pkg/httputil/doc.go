// Package httputil provides the JSON response helpers, request parsing and
// middleware shared by the catalog HTTP handlers.
//
// Errors are always written as {"error": "..."}; description errors may add
// the failure kind and the JSON pointer of the offending value:
//
//	httputil.WriteDetailedError(w, http.StatusBadRequest, httputil.ErrorResponse{
//		Error: err.Error(),
//		Kind:  "malformed_description",
//		Path:  "#/paths/~1pets/get",
//	})
//
// Middleware installs a request ID and a request-scoped logger:
//
//	router.Use(httputil.RequestIDMiddleware(logger), httputil.LoggingMiddleware)
package httputil
