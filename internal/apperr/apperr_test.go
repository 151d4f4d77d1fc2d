package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(fmt.Errorf("record 12345: %w", ErrNotFound)))
	assert.True(t, IsUserError(fmt.Errorf("slot taken: %w", ErrDuplicate)))
	assert.True(t, IsUserError(ErrValidation))
	assert.True(t, IsUserError(ErrCancelled))
	assert.False(t, IsUserError(fmt.Errorf("save: %w", ErrPersistence)))
	assert.False(t, IsUserError(errors.New("boom")))
}
