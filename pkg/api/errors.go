package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/httputil"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/query"
	"github.com/platinummonkey/apicatalog/pkg/refs"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

// errorPath returns the location carried by a compile error
func errorPath(err error) string {
	var merr *compiler.MalformedError
	if errors.As(err, &merr) {
		return merr.Path
	}
	var rerr *refs.Error
	if errors.As(err, &rerr) {
		return rerr.Ref
	}
	return ""
}

// writeError maps an error to a status code. Problems with the submitted
// input answer 4xx; everything else is logged and answers 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case compiler.IsUserError(err):
		httputil.WriteDetailedError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: err.Error(),
			Kind:  compiler.ErrorKind(err),
			Path:  errorPath(err),
		})
	case errors.Is(err, query.ErrInvalidJoin):
		httputil.WriteDetailedError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: err.Error(),
			Kind:  "invalid_join",
		})
	case errors.Is(err, query.ErrInvalidID), errors.Is(err, storage.ErrInvalidID):
		httputil.WriteDetailedError(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: err.Error(),
			Kind:  "invalid_id",
		})
	case errors.Is(err, httputil.ErrBodyTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
		httputil.WriteInternalError(w, err)
	}
}
