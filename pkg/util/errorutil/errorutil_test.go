package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{NewNotFound("incident", nil), CodeNotFound, http.StatusNotFound},
		{NewStorageFault(errors.New("db down")), CodeStorageFault, http.StatusServiceUnavailable},
		{NewUnauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("no"), CodeForbidden, http.StatusForbidden},
		{NewConflict("busy", nil), CodeConflict, http.StatusConflict},
		{NewInternalError(nil), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		d := ToDomainError(tc.err)
		require.Equal(t, tc.code, d.Code)
		require.Equal(t, tc.status, d.HTTPStatus)
	}
}

func TestStorageFaultUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("apply: %w", NewStorageFault(cause))
	require.True(t, IsStorageFault(err))
	require.ErrorIs(t, err, cause)
	require.False(t, IsNotFound(err))
}

func TestToDomainError_FiberAndPlainErrors(t *testing.T) {
	d := ToDomainError(fiber.NewError(http.StatusForbidden, "insufficient role"))
	require.Equal(t, CodeForbidden, d.Code)
	require.Equal(t, "insufficient role", d.Message)

	d = ToDomainError(fiber.ErrUnprocessableEntity)
	require.Equal(t, CodeValidation, d.Code)

	d = ToDomainError(errors.New("boom"))
	require.Equal(t, CodeInternalError, d.Code)
	require.Equal(t, http.StatusInternalServerError, d.HTTPStatus)

	require.Nil(t, ToDomainError(nil))
	require.False(t, IsDomainError(errors.New("plain")))
}
