package response

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthaw/cdrack/internal/errors"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSuccess_MergesStatus(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, Body{"albums": false}, discard())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["albums"])
}

func TestSuccess_StatusCannotBeOverridden(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, Body{"status": "nope", "ping": "pong"}, nil)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "pong", body["ping"])
}

func TestInvalid(t *testing.T) {
	w := httptest.NewRecorder()

	Invalid(w, []errors.KeyError{{Key: "token", Message: "missing"}}, discard())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["status"])
	assert.Equal(t, true, body["error"])
	assert.Equal(t, []any{map[string]any{"key": "token", "message": "missing"}}, body["keys"])
}

func TestInvalid_NilKeysEncodeAsEmptyList(t *testing.T) {
	w := httptest.NewRecorder()

	Invalid(w, nil, nil)

	assert.JSONEq(t, `{"status":false,"error":true,"keys":[]}`, w.Body.String())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        errors.Validation(errors.KeyError{Key: "token", Message: "missing"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":false,"error":true,"keys":[{"key":"token","message":"missing"}]}`,
		},
		{
			name:       "verification",
			err:        errors.Verification(),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"status":false,"error":true,"keys":[{"key":"recaptcha","message":"Recaptcha error"}]}`,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("lookup: %w", errors.NotFound("album")),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"status":false,"message":"Not found"}`,
		},
		{
			name:       "upstream",
			err:        errors.Upstream(errors.New("503"), "musicbrainz unavailable"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":false,"message":"Server error"}`,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"status":false,"message":"Server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, discard())
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHandleError_LogsUpstreamFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	w := httptest.NewRecorder()
	HandleError(w, fmt.Errorf("search: %w", errors.Upstream(errors.New("503"), "release search failed")), logger)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "Upstream provider error")
	assert.NotContains(t, w.Body.String(), "503")

	buf.Reset()
	HandleError(httptest.NewRecorder(), errors.New("boom"), logger)
	assert.Contains(t, buf.String(), "Unhandled error")
}
