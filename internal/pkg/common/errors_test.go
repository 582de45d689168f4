package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorMessage(t *testing.T) {
	err := NewError("TEST_CODE", "預設訊息", http.StatusBadRequest, nil)
	assert.Equal(t, "預設訊息", err.Error())

	wrapped := NewError("TEST_CODE", "預設訊息", http.StatusBadRequest, errors.New("底層錯誤"))
	assert.Equal(t, "底層錯誤", wrapped.Error())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("bad field")))
	assert.False(t, IsValidationError(errors.New("bad field")))
	assert.False(t, IsValidationError(ErrAIServiceError))
}
