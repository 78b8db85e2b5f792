package control

import "fmt"

// ProtocolError indicates malformed framing: a short line, a bad divider,
// a missing CRLF, a missing expected reply field, or otherwise
// inconsistent reply content.
type ProtocolError struct {
	Message string
	Cause   error
}

func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// NewProtocolError builds a ProtocolError with no wrapped cause.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

// WrapProtocolError builds a ProtocolError that wraps a lower-level cause.
func WrapProtocolError(cause error, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// OperationFailed indicates tor rejected an otherwise valid request, e.g.
// a SAVECONF that fails with 551.
type OperationFailed struct {
	Code    string
	Message string
}

func (e *OperationFailed) Error() string {
	return fmt.Sprintf("operation failed (%s): %s", e.Code, e.Message)
}

// UnsatisfiableRequest is a subtype of OperationFailed for semantically
// impossible requests (tor understood the request but cannot satisfy it).
type UnsatisfiableRequest struct {
	OperationFailed
}

// Unwrap exposes the embedded OperationFailed so errors.As matches a
// *UnsatisfiableRequest against a *OperationFailed target.
func (e *UnsatisfiableRequest) Unwrap() error { return &e.OperationFailed }

// InvalidRequest indicates a malformed request: status 513, 553, or a 552
// that does not identify a specific unknown argument.
type InvalidRequest struct {
	Code    string
	Message string
}

func (e *InvalidRequest) Error() string {
	return fmt.Sprintf("invalid request (%s): %s", e.Code, e.Message)
}

// InvalidArguments is a subtype of InvalidRequest where tor's 552 reply
// identified one or more specific unknown keys, options, or features by
// name.
type InvalidArguments struct {
	InvalidRequest
	Args []string
}

func (e *InvalidArguments) Error() string {
	return fmt.Sprintf("invalid arguments (%s): %s %v", e.Code, e.Message, e.Args)
}

// Unwrap exposes the embedded InvalidRequest so errors.As matches a
// *InvalidArguments against a *InvalidRequest target.
func (e *InvalidArguments) Unwrap() error { return &e.InvalidRequest }

// SocketError indicates a transport-level failure while connecting or
// writing to the control socket.
type SocketError struct {
	Message string
	Cause   error
}

func (e *SocketError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("socket error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("socket error: %s", e.Message)
}

func (e *SocketError) Unwrap() error { return e.Cause }

// SocketClosed is a SocketError subtype raised when the socket ended
// mid-message, hit EOF, or was already shut down.
type SocketClosed struct {
	SocketError
}

// Unwrap exposes the embedded SocketError so errors.As matches a
// *SocketClosed against a *SocketError target; the wrapped cause stays
// reachable one level further down.
func (e *SocketClosed) Unwrap() error { return &e.SocketError }

// NewSocketClosed builds a SocketClosed error, optionally wrapping a cause.
func NewSocketClosed(message string, cause error) *SocketClosed {
	return &SocketClosed{SocketError{Message: message, Cause: cause}}
}

// NewSocketError builds a generic SocketError, optionally wrapping a cause.
func NewSocketError(message string, cause error) *SocketError {
	return &SocketError{Message: message, Cause: cause}
}
