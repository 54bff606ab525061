package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentityForErrorsIs(t *testing.T) {
	err := Clone(ErrInvalidTransition, "cannot move from draft to enrolled")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrPreconditionFailed))
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestFromErrorFindsWrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrConcurrentModification, ""))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrConcurrentModification.Code, appErr.Code)
	assert.True(t, Retryable(wrapped))
	assert.False(t, Retryable(ErrUnauthorizedTransition))
}

func TestWithFields(t *testing.T) {
	err := WithFields(ErrImmutableField, "", "birth_date", "nationality")
	assert.Equal(t, []string{"birth_date", "nationality"}, err.Fields)
	assert.Equal(t, ErrImmutableField.Message, err.Message)
	assert.Empty(t, ErrImmutableField.Fields)
}
