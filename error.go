package barrister

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a JSON-RPC error code. Negative codes are reserved by the
// protocol; application errors should use positive codes.
type ErrorCode int

const (
	// ParseError means invalid JSON (or CBOR) was received by the server.
	ParseError ErrorCode = -32700

	// InvalidRequest means the payload was not a valid request object.
	InvalidRequest ErrorCode = -32600

	// MethodNotFound is returned for a malformed method name, an unknown
	// interface or an unknown function.
	MethodNotFound ErrorCode = -32601

	// InvalidParams is returned when the request params do not match the
	// function's declared params.
	InvalidParams ErrorCode = -32602

	// InternalError is used by batches when the peer omitted a response.
	InternalError ErrorCode = -32603

	// ServerError signals a deployment problem (no handler bound, function
	// not implemented) or an unexpected fault inside a handler.
	ServerError ErrorCode = -32000

	// InvalidResponse means the handler returned a value which does not
	// match the function's declared return type.
	InvalidResponse ErrorCode = -32001
)

var errorMessage = map[ErrorCode]string{
	ParseError:      "Unable to parse request",
	InvalidRequest:  "Invalid request",
	MethodNotFound:  "Method not found",
	InvalidParams:   "Invalid params",
	InternalError:   "Internal error",
	ServerError:     "Server error",
	InvalidResponse: "Invalid response",
}

// DefaultMessage returns a generic message for a reserved error code.
func DefaultMessage(code ErrorCode) string {
	return errorMessage[code]
}

var (
	// ErrInvalidIDL is returned when an IDL document cannot be turned into
	// a contract.
	ErrInvalidIDL = errors.New("invalid IDL")

	// ErrExtendsCycle is returned when a struct's `extends` chain loops back
	// on itself.
	ErrExtendsCycle = errors.New("struct extends cycle")

	// ErrBatchSent is returned when a batch is sent more than once.
	ErrBatchSent = errors.New("batch already sent")

	// ErrBatchEmpty is returned when sending a batch with no calls.
	ErrBatchEmpty = errors.New("batch is empty")

	// ErrNoContract is returned when validation is requested but no contract
	// is available.
	ErrNoContract = errors.New("no contract available")
)

// Error is a JSON-RPC error object. It is both what goes over the wire and
// the single failure type surfaced to client code, so callers can branch on
// `Code` regardless of whether the failure came from contract validation or
// from application logic. Handlers return an `*Error` to send a domain error
// to the caller unmodified.
type Error struct {
	// Code is the error type that occurred.
	Code ErrorCode `json:"code" cbor:"code"`

	// Message is a short description of the error.
	Message string `json:"message" cbor:"message"`

	// Data holds optional additional information about the error.
	Data any `json:"data,omitempty" cbor:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Code, errorMessage[e.Code])
}

// ErrorCode returns the JSON-RPC error code associated with the error.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// NewError creates a new error with an optional data value.
func NewError(code ErrorCode, msg string, data ...any) *Error {
	e := &Error{Code: code, Message: msg}
	if len(data) > 0 {
		e.Data = data[0]
	}
	return e
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError returns the first `*Error` in the chain of `err`, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrorDetailer returns error details for responses & debugging.
type ErrorDetailer interface {
	ErrorDetail() *ErrorDetail
}

// ErrorDetail describes a single validation failure.
type ErrorDetail struct {
	Message  string `json:"message,omitempty" cbor:"message,omitempty"`
	Location string `json:"location,omitempty" cbor:"location,omitempty"`
	Value    any    `json:"value,omitempty" cbor:"value,omitempty"`
}

// Error returns the error message. The message already names the location.
func (e *ErrorDetail) Error() string {
	return e.Message
}

// ErrorDetail satisfies the `ErrorDetailer` interface.
func (e *ErrorDetail) ErrorDetail() *ErrorDetail {
	return e
}

// TransportError is returned by transports when the exchange itself fails,
// for example with a non-success HTTP status code.
type TransportError struct {
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// GetStatus returns the HTTP status code of the failed exchange.
func (e *TransportError) GetStatus() int {
	return e.StatusCode
}
