package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(runner RunnerFunc, queue feed.Queue, stager Stager, records content.Store, authEnabled bool, token string) chi.Router {
	h := NewHandler(runner, queue, stager, records)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pipeline triggers and status.
	r.Post("/import", h.TriggerImport)
	r.Get("/import/last", h.LastOutcome)
	r.Get("/queue", h.QueueStatus)
	r.Get("/staging", h.ListStaged)

	// Imported records.
	r.Get("/records", h.ListRecords)
	r.Get("/records/{id}", h.GetRecord)

	return r
}
