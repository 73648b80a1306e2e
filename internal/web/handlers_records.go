package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/logging"
)

// handleListRecords returns one page of records.
// Query params: sort_order, search_column, keyword, limit, page.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	records, err := s.service.List(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, notFoundAs(err, "Pokemon not found.."))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleCreateRecord stores a new record under the next free id.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var in core.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("record created", "id", rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

// handleReplaceRecord overwrites every attribute of a record. Responds 202.
func (s *Server) handleReplaceRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var in core.RecordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.Replace(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, notFoundAs(err, "Pokemon with this id does not exist."))
		return
	}

	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) handlePatchRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var p core.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}

	rec, err := s.service.Patch(r.Context(), id, p)
	if err != nil {
		msg := fmt.Sprintf("Pokemon with id %d doesn't exist...", id)
		s.respondError(w, r, notFoundAs(err, msg))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, notFoundAs(err, "Pokemon not found"))
		return
	}

	logging.FromContext(r.Context()).Info("record deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
