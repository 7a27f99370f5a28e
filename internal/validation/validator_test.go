package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/validation"
)

type contactRequest struct {
	Token string `json:"token" validate:"present"`
	Name  string `json:"name" validate:"required,min=2,max=20"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

func keysOf(t *testing.T, err error) []domainerrors.KeyError {
	t.Helper()

	var de *domainerrors.Error
	require.True(t, errors.As(err, &de), "expected domain error, got %v", err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus())
	return de.Keys
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(contactRequest{Token: "t", Name: "Joe", Email: "joe@example.com", Phone: "+14155550123"})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name string
		req  contactRequest
		want []domainerrors.KeyError
	}{
		{
			name: "missing token",
			req:  contactRequest{Name: "Joe"},
			want: []domainerrors.KeyError{{Key: "token", Message: "missing"}},
		},
		{
			name: "blank token",
			req:  contactRequest{Token: "   ", Name: "Joe"},
			want: []domainerrors.KeyError{{Key: "token", Message: "missing"}},
		},
		{
			name: "too short",
			req:  contactRequest{Token: "t", Name: "J"},
			want: []domainerrors.KeyError{{Key: "name", Message: validation.MsgTooShort}},
		},
		{
			name: "too long",
			req:  contactRequest{Token: "t", Name: strings.Repeat("j", 21)},
			want: []domainerrors.KeyError{{Key: "name", Message: validation.MsgTooLong}},
		},
		{
			name: "bad email and phone",
			req:  contactRequest{Token: "t", Name: "Joe", Email: "nope", Phone: "555"},
			want: []domainerrors.KeyError{
				{Key: "email", Message: validation.MsgEmail},
				{Key: "phone", Message: validation.MsgNumber},
			},
		},
		{
			name: "every key reported in field order",
			req:  contactRequest{},
			want: []domainerrors.KeyError{
				{Key: "token", Message: "missing"},
				{Key: "name", Message: "missing"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Equal(t, tt.want, keysOf(t, err))
		})
	}
}

func TestValidator_Register(t *testing.T) {
	v := validation.New()
	require.NoError(t, v.Register("mbid", func(s string) bool { return len(s) == 36 }, "Invalid id"))

	type req struct {
		MBID string `json:"mbid" validate:"mbid"`
	}

	assert.NoError(t, v.Validate(req{MBID: "b1392450-e666-3926-a536-22c65f834433"}))

	err := v.Validate(req{MBID: "abc"})
	assert.Equal(t, []domainerrors.KeyError{{Key: "mbid", Message: "Invalid id"}}, keysOf(t, err))
}

func TestValidator_UnknownTagFallsBackToInvalid(t *testing.T) {
	v := validation.New()

	type req struct {
		Year string `json:"year" validate:"numeric"`
	}

	err := v.Validate(req{Year: "199x"})
	assert.Equal(t, []domainerrors.KeyError{{Key: "year", Message: validation.MsgInvalid}}, keysOf(t, err))
}
