package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/ava-vs/chunkvault/internal/common"
	"github.com/ava-vs/chunkvault/internal/server/models"
)

var validate = validator.New()

// decodeJSON is the parse-or-fail step at the boundary: unknown fields and
// shape violations are rejected before anything reaches the core.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

// ---- uploads ----

type initializeUploadRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	TotalSize int64  `json:"total_size" validate:"required,gt=0"`
	ChunkSize int64  `json:"chunk_size" validate:"required,gt=0"`
}

type initializeUploadResponse struct {
	UploadID       string `json:"upload_id"`
	StoragePrefix  string `json:"storage_prefix"`
	ChunkSize      int64  `json:"chunk_size"`
	ExpectedChunks int    `json:"expected_chunks"`
}

func (s *Server) handleInitializeUpload(w http.ResponseWriter, r *http.Request) {
	var req initializeUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := s.service.InitializeUpload(r.Context(), req.ProductID, identityFrom(r.Context()), req.TotalSize, req.ChunkSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, initializeUploadResponse{
		UploadID:       session.UploadID,
		StoragePrefix:  session.StoragePrefix,
		ChunkSize:      session.ChunkSize,
		ExpectedChunks: session.ExpectedChunks,
	})
}

type uploadChunkResponse struct {
	ChunkHash string `json:"chunk_hash"`
}

func (s *Server) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadID")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %q is not an integer", common.ErrInvalidChunkIndex, chi.URLParam(r, "index")))
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxChunkBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, fmt.Errorf("%w: chunk body exceeds %d bytes", common.ErrorValidation, maxErr.Limit))
			return
		}
		writeError(w, r, fmt.Errorf("read chunk body: %w", err))
		return
	}

	hash, err := s.service.UploadChunk(r.Context(), uploadID, index, data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, uploadChunkResponse{ChunkHash: hash})
}

type completeUploadRequest struct {
	Manifest *models.ChunkManifest `json:"manifest" validate:"required"`
}

type completeUploadResponse struct {
	ProductID string `json:"product_id"`
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req completeUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	productID, err := s.service.CompleteUpload(r.Context(), chi.URLParam(r, "uploadID"), req.Manifest)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, completeUploadResponse{ProductID: productID})
}

func (s *Server) handleAbortUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.service.AbortUpload(r.Context(), chi.URLParam(r, "uploadID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- downloads ----

type manifestResponse struct {
	Manifest *models.ChunkManifest `json:"manifest"`
}

func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	man, err := s.service.GetManifest(r.Context(), chi.URLParam(r, "productID"), identityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// A null manifest is a valid outcome: the upload never completed.
	render.JSON(w, r, manifestResponse{Manifest: man})
}

func (s *Server) handleDownloadChunk(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %q is not an integer", common.ErrInvalidChunkIndex, chi.URLParam(r, "index")))
		return
	}

	data, err := s.service.DownloadChunk(r.Context(), chi.URLParam(r, "productID"), index, identityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		// Product exists and access was granted, but there is no
		// finalized content (or the object is gone).
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// ---- grants and receipts ----

type grantKeyRequest struct {
	RecipientIdentity string `json:"recipient_identity" validate:"required"`
	ContentKey        string `json:"content_key" validate:"required,base64"`
	TTLMinutes        int    `json:"ttl_minutes" validate:"required,gt=0"`
}

type grantKeyResponse struct {
	GrantID   string    `json:"grant_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleGrantKey(w http.ResponseWriter, r *http.Request) {
	var req grantKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	contentKey, err := base64.StdEncoding.DecodeString(req.ContentKey)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: content_key is not valid base64", common.ErrorValidation))
		return
	}

	grant, err := s.service.GrantKey(r.Context(), chi.URLParam(r, "productID"), identityFrom(r.Context()),
		req.RecipientIdentity, contentKey, time.Duration(req.TTLMinutes)*time.Minute)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, grantKeyResponse{GrantID: grant.ID, ExpiresAt: grant.ExpiresAt})
}

type keyEnvelopeResponse struct {
	KeyEnvelope string `json:"key_envelope"`
}

func (s *Server) handleGetKeyEnvelope(w http.ResponseWriter, r *http.Request) {
	envelope, err := s.service.GetKeyEnvelope(r.Context(), chi.URLParam(r, "productID"), identityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, keyEnvelopeResponse{KeyEnvelope: base64.StdEncoding.EncodeToString(envelope)})
}

type acknowledgeResponse struct {
	ReceiptID  string    `json:"receipt_id"`
	TransferID string    `json:"transfer_id"`
	ReceivedAt time.Time `json:"received_at"`
}

func (s *Server) handleAcknowledgeDelivery(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.AcknowledgeDelivery(r.Context(), chi.URLParam(r, "transferID"), identityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, acknowledgeResponse{
		ReceiptID:  receipt.ID,
		TransferID: receipt.TransferID,
		ReceivedAt: receipt.ReceivedAt,
	})
}
