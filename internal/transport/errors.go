package transport

import (
	"errors"
	"fmt"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/protocol"
)

var (
	// ErrTimeout is returned when a request receives no response within the
	// caller's deadline. The session stays usable; callers may retry.
	ErrTimeout = errors.New("request timed out")

	// ErrClientNotActive is returned when a request is issued before Start
	// or after Stop.
	ErrClientNotActive = errors.New("client not active")

	// ErrServerExited is returned to all pending requests when the server's
	// output stream reaches end-of-stream.
	ErrServerExited = errors.New("server exited")

	// ErrClientStopped is returned when Stop is called while a request is
	// still waiting for its response.
	ErrClientStopped = errors.New("client stopped")
)

// ProtocolError wraps the error object of a JSON-RPC error response. It is a
// per-request failure, not fatal to the session.
type ProtocolError struct {
	Method string
	Err    *protocol.RPCError
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError indicates a session-fatal transport failure: the process
// failed to launch, a pipe closed unexpectedly, or a frame was malformed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
