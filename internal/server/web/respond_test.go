package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ava-vs/chunkvault/internal/common"
)

func TestWriteError_TaxonomyMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"access_denied", fmt.Errorf("%w: no paid transfer", common.ErrAccessDenied), http.StatusForbidden, "access_denied"},
		{"product_not_found", common.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
		{"session_not_found", common.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{"not_found", common.ErrorNotFound, http.StatusNotFound, "not_found"},
		{"invalid_chunk_index", fmt.Errorf("%w: index 7", common.ErrInvalidChunkIndex), http.StatusBadRequest, "invalid_chunk_index"},
		{"manifest_invalid", fmt.Errorf("%w: total_chunks missing", common.ErrManifestInvalid), http.StatusBadRequest, "manifest_invalid"},
		{"validation", common.ErrorValidation, http.StatusBadRequest, "validation_error"},
		{"incomplete_upload", fmt.Errorf("%w: 2 of 3 chunks uploaded", common.ErrIncompleteUpload), http.StatusConflict, "incomplete_upload"},
		{"storage_unavailable", common.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(rec, req, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tc.wantStatus)
			}

			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("code: got %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}

func TestWriteError_UnknownErrorDoesNotLeakDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, errors.New("dsn=postgres://secret@db"))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "internal error" {
		t.Fatalf("internal errors must not carry detail, got %q", resp.Error)
	}
}

func TestWriteError_WrappedDetailIsForwarded(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(rec, req, fmt.Errorf("%w: index 7, manifest has 3 chunks", common.ErrInvalidChunkIndex))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if want := "invalid chunk index: index 7, manifest has 3 chunks"; resp.Error != want {
		t.Fatalf("detail: got %q, want %q", resp.Error, want)
	}
}
