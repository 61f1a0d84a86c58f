package barrister

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Ensure the error types satisfy these interfaces.
var _ error = (*Error)(nil)
var _ ErrorDetailer = (*ErrorDetail)(nil)

func TestError(t *testing.T) {
	err := NewError(InvalidParams, "bad params", &ErrorDetail{Message: "a: expected int", Location: "a", Value: "x"})
	assert.Equal(t, "-32602: bad params", err.Error())
	assert.Equal(t, InvalidParams, err.ErrorCode())
	assert.Equal(t, "a", err.Data.(*ErrorDetail).Location)

	assert.Equal(t, "-32000: Server error", (&Error{Code: ServerError}).Error())
	assert.Equal(t, "Method not found: x", Errorf(MethodNotFound, "Method not found: %s", "x").Message)
	assert.Nil(t, NewError(ParseError, "x").Data)
}

func TestDefaultMessages(t *testing.T) {
	for _, code := range []ErrorCode{ParseError, InvalidRequest, MethodNotFound, InvalidParams, InternalError, ServerError, InvalidResponse} {
		assert.NotEmpty(t, DefaultMessage(code), "%d", code)
	}
	assert.Empty(t, DefaultMessage(42))
}

func TestAsError(t *testing.T) {
	wrapped := fmt.Errorf("call failed: %w", NewError(7, "seven"))
	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorCode(7), e.Code)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestTransportError(t *testing.T) {
	err := fmt.Errorf("send: %w", &TransportError{StatusCode: 503, Body: "down"})
	assert.Equal(t, "send: transport error: 503 Service Unavailable: down", err.Error())

	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.GetStatus())

	_, ok := AsError(err)
	assert.False(t, ok)
}
