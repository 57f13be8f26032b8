package web

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "OK"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", s.handleInitializeUpload)
			r.Put("/{uploadID}/chunks/{index}", s.handleUploadChunk)
			r.Post("/{uploadID}/complete", s.handleCompleteUpload)
			r.Delete("/{uploadID}", s.handleAbortUpload)
		})

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Get("/manifest", s.handleGetManifest)
			r.Get("/chunks/{index}", s.handleDownloadChunk)
			r.Get("/key", s.handleGetKeyEnvelope)
			r.Post("/grants", s.handleGrantKey)
		})

		r.Post("/transfers/{transferID}/ack", s.handleAcknowledgeDelivery)
	})

	return r
}
