package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-tag-service/ets-server/internal/store"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "resource not found", store.ErrNotFound.Error())

	cause := errors.New("disk on fire")
	err := store.ErrNotFound.WithCause(cause)
	assert.Contains(t, err.Error(), "resource not found")
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, cause, err.Unwrap())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := store.ErrNotFound.WithMessage("relayer not found")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrAlreadyExists)

	wrapped := fmt.Errorf("get relayer: %w", err)
	assert.ErrorIs(t, wrapped, store.ErrNotFound)
}

func TestError_HTTPCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, store.ErrNotFound.HTTPCode())
	assert.Equal(t, http.StatusConflict, store.ErrAlreadyExists.HTTPCode())
	assert.Equal(t, http.StatusBadRequest, store.ErrInvalidInput.HTTPCode())
}
