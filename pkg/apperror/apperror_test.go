package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:      http.StatusBadRequest,
		CodeAuthorization:   http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeInvalidPart:     http.StatusUnprocessableEntity,
		CodeUpstreamTimeout: http.StatusGatewayTimeout,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, (&AppError{Code: code}).StatusCode())
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Conflict("moved on").Retryable())
	assert.True(t, UpstreamTimeout("catalog", nil).Retryable())
	assert.False(t, Validation("bad input").Retryable())
	assert.False(t, NotFound("appointment").Retryable())
}

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	base := NotFound("appointment")
	wrapped := fmt.Errorf("loading appointment: %w", base)

	appErr := As(wrapped)
	assert.Equal(t, base, appErr)
	assert.True(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(wrapped, CodeConflict))
	assert.Nil(t, As(errors.New("plain")))
	assert.False(t, Is(nil, CodeNotFound))
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := UpstreamTimeout("catalog", cause)
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}
