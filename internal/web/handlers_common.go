package web

// handlers_common.go holds request parsing and response helpers shared by
// the handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// MaxBodySize caps JSON request bodies (1MB).
const MaxBodySize = 1 << 20

// parseIDParam reads the {id} path parameter.
func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.NewValidationError("id", "value is not a valid integer")
	}
	return id, nil
}

// parseIntParam parses an integer query parameter, keeping defaultVal when
// it is absent.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(name, "value is not a valid integer")
	}
	return i, nil
}

// parseListParams reads sort_order, search_column, keyword, limit and page.
func parseListParams(r *http.Request) (core.ListParams, error) {
	p := core.DefaultListParams()
	q := r.URL.Query()

	if v := q.Get("sort_order"); v != "" {
		p.SortOrder = v
	}
	if v := q.Get("search_column"); v != "" {
		p.SearchColumn = v
	}
	p.Keyword = q.Get("keyword")

	var errs []core.FieldError
	var err error
	if p.Limit, err = parseIntParam(r, "limit", core.DefaultLimit); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}
	if p.Page, err = parseIntParam(r, "page", core.DefaultPage); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}
	if len(errs) > 0 {
		return core.ListParams{}, &core.ValidationError{Fields: errs}
	}
	return p, nil
}

func fieldErrors(err error) []core.FieldError {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return []core.FieldError{{Message: err.Error()}}
}

// decodeJSON reads a JSON body into v. Syntax problems become
// core.ErrMalformedBody, wrongly typed values a ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}

	var (
		typeErr *json.UnmarshalTypeError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return core.NewValidationError(field, fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value))
	case errors.As(err, &maxErr):
		return fmt.Errorf("%w: body exceeds %d bytes", core.ErrMalformedBody, maxErr.Limit)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: empty body", core.ErrMalformedBody)
	default:
		return fmt.Errorf("%w: %v", core.ErrMalformedBody, err)
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
