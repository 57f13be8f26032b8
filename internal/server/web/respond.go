package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/ava-vs/chunkvault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the core's error taxonomy onto HTTP statuses 1:1 and
// forwards the wrapped detail so callers can correct the request without
// guessing. Unknown errors collapse to 500 without leaking internals.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
	)

	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrAccessDenied):
		status, code = http.StatusForbidden, "access_denied"
	case errors.Is(err, common.ErrProductNotFound):
		status, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, common.ErrSessionNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, common.ErrorNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrInvalidChunkIndex):
		status, code = http.StatusBadRequest, "invalid_chunk_index"
	case errors.Is(err, common.ErrManifestInvalid):
		status, code = http.StatusBadRequest, "manifest_invalid"
	case errors.Is(err, common.ErrorValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, common.ErrIncompleteUpload):
		status, code = http.StatusConflict, "incomplete_upload"
	case errors.Is(err, common.ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, "storage_unavailable"
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "internal error", Code: "internal"})
		return
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error(), Code: code})
}
