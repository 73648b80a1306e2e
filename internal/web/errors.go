package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error type
//  4. core.MapError supplies the user message and support code
//  5. The technical error is logged with the request id for correlation

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/logging"
)

// errRateLimited is reported when a client exceeds its request budget.
var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

// clientError replaces the client-facing text of err while keeping it
// matchable with errors.Is/As.
type clientError struct {
	msg string
	err error
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.err }

// notFoundAs gives not-found errors a route-specific message. Other errors
// pass through unchanged.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, core.ErrNotFound) {
		return &clientError{msg: msg, err: err}
	}
	return err
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var (
		validationErr *core.ValidationError
		columnErr     *core.InvalidColumnError
		fetchErr      *core.FetchError
		mappingErr    *core.MappingError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrMalformedBody), errors.As(err, &columnErr):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &mappingErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the response for err. Client faults and upstream
// failures carry the error text; internal failures only the mapped message.
func errorBody(err error, status int) ErrorResponse {
	msg := core.MapError(err)
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if status < http.StatusInternalServerError || status == http.StatusBadGateway {
		resp.Error = err.Error()
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		resp.Fields = validationErr.Fields
	}
	return resp
}

// respondError logs the technical error and writes a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorBody(err, status)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", resp.Code,
	}
	if !core.IsUserFacing(err) {
		// No message mapping matched; the client only sees ERR000.
		args = append(args, "unmapped", true)
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	writeJSON(w, status, resp)
}

// handleRateLimited is the rejection handler for the rate limit middleware.
func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited)
}
