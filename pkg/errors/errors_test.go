package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrValidation, "name is required")
	assert.Equal(t, "name is required", err.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := FromError(cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("context: %w", ErrConflict)
	assert.Equal(t, ErrConflict.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
