package utils

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "wrong .pdf", NewValidationError("wrong %s", ".pdf").Error())
}

func TestServiceError_Unwrap(t *testing.T) {
	err := NewServiceError(io.EOF, true)
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, "EOF", err.Error())
}

func TestParseError(t *testing.T) {
	err := NewParseError(io.ErrUnexpectedEOF, "[{")
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	var pe *ParseError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &pe))
	assert.Equal(t, "[{", pe.Raw)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("wrap: %w", NewServiceError(io.EOF, true))))
	assert.False(t, IsTransient(NewServiceError(io.EOF, false)))
	assert.False(t, IsTransient(io.EOF))
	assert.False(t, IsTransient(nil))
}
