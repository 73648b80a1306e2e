package web

import (
	"net/http"

	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/logging"
	"github.com/JonMunkholm/pokedex/internal/web/views"
)

// handleBrowse renders the list query as an HTML table.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	data := views.BrowseData{Params: core.DefaultListParams()}
	status := http.StatusOK

	params, err := parseListParams(r)
	if err == nil {
		data.Params = params
		data.Records, err = s.service.List(r.Context(), params)
	}
	if err != nil {
		status = statusFor(err)
		msg := core.MapError(err)
		data.Error = &msg
		s.logPageError(r, err, status)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.BrowsePage(data).Render(r.Context(), w); err != nil {
		s.logPageError(r, err, status)
	}
}

func (s *Server) logPageError(r *http.Request, err error, status int) {
	logging.FromContext(r.Context()).Warn("page error",
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)
}
