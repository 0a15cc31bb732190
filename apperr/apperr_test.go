package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsUnwrapsWrappedError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("login: %w", Transport("identity service unavailable", cause))

	appErr := As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeTransport, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeTransport))
	assert.False(t, Is(err, CodeValidation))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "conflict: busy", Conflict("busy").Error())
	assert.Equal(t, "validation: bad: boom", Validation("bad", errors.New("boom")).Error())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(errors.New("plain")))
}
