package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error flows through respondError, which:
//   - logs the technical error with the request id for correlation,
//   - maps it to a user-friendly message via core.MapError,
//   - picks an HTTP status from the error type,
//   - writes a JSON body with machine-readable code and human message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/prospectdb/prospectdb/internal/core"
)

// ErrorResponse is the JSON structure for API error responses. It carries
// both machine-readable (Code) and human-readable (Message, Action)
// fields, plus the detailed error text when it is safe to show.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error server-side and writes a JSON
// error response with a status derived from the error type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	userMsg := core.MapError(err)

	requestID := middleware.GetReqID(r.Context())

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	detail := userMsg.Message
	if core.IsUserFacing(err) {
		// Known validation/state errors carry safe, specific detail
		// (e.g. the list of missing columns).
		detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   detail,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// httpStatus maps domain errors to HTTP status codes: input errors to
// 400, lookups to 404, conflicts to 409, credit exhaustion to 402, and
// anything unrecognized to 500.
func httpStatus(err error) int {
	var (
		missingCols  *core.MissingColumnsError
		insufficient *core.InsufficientCreditsError
		badFileType  *core.UnsupportedFileTypeError
		badFormat    *core.UnsupportedFormatError
		badIndex     *core.RowIndexError
	)

	switch {
	case errors.Is(err, core.ErrTenantNotFound),
		errors.Is(err, core.ErrDatasetNotFound),
		errors.Is(err, core.ErrRequestNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrAlreadyProcessed):
		return http.StatusConflict

	case errors.As(err, &insufficient):
		return http.StatusPaymentRequired

	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusTooManyRequests

	case errors.Is(err, core.ErrEmptyDataset),
		errors.Is(err, core.ErrNoHeaders),
		errors.Is(err, core.ErrNoSelection),
		errors.Is(err, core.ErrInvalidAmount),
		errors.As(err, &missingCols),
		errors.As(err, &badFileType),
		errors.As(err, &badFormat),
		errors.As(err, &badIndex):
		return http.StatusBadRequest

	default:
		// Unmatched errors fall back on their support-code category:
		// file/validation codes are client problems, everything else
		// (storage, unknown) is an internal error.
		code := core.MapError(err).Code
		for _, prefix := range []string{"FILE", "VAL", "EXP", "CRD"} {
			if strings.HasPrefix(code, prefix) {
				return http.StatusBadRequest
			}
		}
		return http.StatusInternalServerError
	}
}
