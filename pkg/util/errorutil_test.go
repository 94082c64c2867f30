package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		err := NewNoSession("missing cookie")
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, "NO_SESSION", de.Code)
		assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	})

	t.Run("wraps upstream failures", func(t *testing.T) {
		cause := errors.New("connection refused")
		de := ToDomainError(NewUpstreamError("profile fetch", cause))
		assert.Equal(t, "BACKEND_UNAVAILABLE", de.Code)
		assert.Equal(t, http.StatusBadGateway, de.HTTPStatus)
		assert.ErrorIs(t, de, cause)
	})

	t.Run("maps fiber errors", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(http.StatusBadRequest, "invalid payload"))
		assert.Equal(t, "BAD_REQUEST", de.Code)
		assert.Equal(t, "invalid payload", de.Message)
	})

	t.Run("maps deadlines to gateway timeout", func(t *testing.T) {
		de := ToDomainError(fmt.Errorf("profile: %w", context.DeadlineExceeded))
		assert.Equal(t, "TIMEOUT", de.Code)
		assert.Equal(t, http.StatusGatewayTimeout, de.HTTPStatus)
	})

	t.Run("hides unknown errors", func(t *testing.T) {
		de := ToDomainError(errors.New("boom"))
		assert.Equal(t, "INTERNAL_ERROR", de.Code)
		assert.Equal(t, "internal server error", de.Message)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})
}
