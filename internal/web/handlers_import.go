package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// ImportResponse is the success body of POST /records/import.
type ImportResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	ImportID string `json:"import_id"`
}

// handleImport fetches the remote dataset and inserts it in one
// transaction. Nothing is stored on failure.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Import(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{
		Message:  "Data successfully stored in the database",
		Inserted: result.Inserted,
		ImportID: result.ImportID,
	})
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string                    `json:"status"`
	Error   string                    `json:"error,omitempty"`
	Imports *core.ImportLimiterStatus `json:"imports,omitempty"`
}

// handleHealth reports whether the store answers a ping. A failed ping is
// reported as the formatted user message, never the raw driver error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok"}
	if im := s.service.Importer(); im != nil {
		status := im.Limiter().Status()
		resp.Imports = &status
	}

	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = core.FormatUserError(err)
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
