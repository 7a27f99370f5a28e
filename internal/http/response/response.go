// Package response provides standardized HTTP response formatting and error handling utilities.
//
// Every body is a flat JSON object carrying a "status" member: "ok" on
// success, false on failure. Handler fields are merged next to it.
package response

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jthaw/cdrack/internal/errors"
)

// StatusOK is the status member of every successful body.
const StatusOK = "ok"

// Body is the set of fields a handler contributes to a response.
type Body map[string]any

// JSON writes body as-is with the given status code.
func JSON(w http.ResponseWriter, status int, body Body, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes a 200 response with status "ok" merged into fields.
// A "status" key in fields is overwritten.
func Success(w http.ResponseWriter, fields Body, logger *slog.Logger) {
	body := make(Body, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = StatusOK
	JSON(w, http.StatusOK, body, logger)
}

// Error writes a failure body: {"status": false, "message": message}.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, Body{"status": false, "message": message}, logger)
}

// Invalid writes a 400 listing the failed request keys.
func Invalid(w http.ResponseWriter, keys []errors.KeyError, logger *slog.Logger) {
	if keys == nil {
		keys = []errors.KeyError{}
	}
	JSON(w, http.StatusBadRequest, Body{"status": false, "error": true, "keys": keys}, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusNotFound, "Not found", logger)
}

// InternalError writes the generic 500 body. Details never reach the client.
func InternalError(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, "Server error", logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Validation and verification failures become 400 with keys, not-found
// becomes 404, anything else is logged and becomes 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case errors.CodeValidation, errors.CodeVerification:
			Invalid(w, domainErr.Keys, logger)
			return
		case errors.CodeNotFound:
			NotFound(w, logger)
			return
		}
	}

	if logger != nil {
		if errors.Is(err, errors.ErrUpstream) {
			logger.Error("Upstream provider error", "error", err)
		} else {
			logger.Error("Unhandled error", "error", err)
		}
	}
	InternalError(w, logger)
}
