package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/store"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *domainerrors.Error
		wantStatus int
		wantIs     error
	}{
		{
			name:       "not found",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantIs:     domainerrors.ErrNotFound,
		},
		{
			name:       "empty key",
			err:        store.ErrEmptyKey,
			wantStatus: http.StatusInternalServerError,
			wantIs:     domainerrors.ErrInternal,
		},
		{
			name:       "closed",
			err:        store.ErrStoreClosed,
			wantStatus: http.StatusInternalServerError,
			wantIs:     domainerrors.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus())
			assert.NotEmpty(t, tt.err.Message)
			assert.True(t, errors.Is(tt.err, tt.wantIs))
		})
	}
}

func TestSentinelErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("get album: %w", store.ErrNotFound)

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}
