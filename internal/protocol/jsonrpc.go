// Package protocol implements JSON-RPC 2.0 message framing for LSP
// communication over byte streams.
package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// JSON-RPC protocol constants
const (
	JSONRPCVersion = "2.0"

	contentLengthHeader = "Content-Length:"
)

// JSON-RPC error codes
const (
	ParseError     = -32700 // Invalid JSON was received by the server
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist / is not available
	InvalidParams  = -32602 // Invalid method parameter(s)
	InternalError  = -32603 // Internal JSON-RPC error
)

// Message represents a JSON-RPC 2.0 message. The ID is kept raw so that
// responses to server-originated requests echo the server's id verbatim,
// whatever type it used.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error object
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// IsResponse reports whether m is a response: it carries an id but no method.
func (m *Message) IsResponse() bool {
	return len(m.ID) > 0 && m.Method == ""
}

// IsNotification reports whether m is a notification: a method but no id.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0 && m.Method != ""
}

// IsRequest reports whether m is a server-originated request carrying both
// an id and a method. Such requests must be answered, even if trivially.
func (m *Message) IsRequest() bool {
	return len(m.ID) > 0 && m.Method != ""
}

// IntID parses the message id as an integer. Client-issued requests always
// use integer ids, so responses we correlate must parse here.
func (m *Message) IntID() (int64, bool) {
	if len(m.ID) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(m.ID)), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// EncodeID renders an integer request id as a raw JSON id value.
func EncodeID(id int64) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(id, 10))
}

// NewRequest builds a client request message with the given integer id.
func NewRequest(id int64, method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: JSONRPCVersion,
		ID:      EncodeID(id),
		Method:  method,
		Params:  raw,
	}, nil
}

// NewNotification builds a notification message (no id, no response expected).
func NewNotification(method string, params interface{}) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResponse builds a response to a server-originated request, echoing the
// request id verbatim.
func NewResponse(id json.RawMessage, result interface{}) (*Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  raw,
	}, nil
}

func marshalParams(params interface{}) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return raw, nil
}

// WriteMessage serializes msg and writes a single framed message:
// "Content-Length: <n>\r\n\r\n<body>". Callers are responsible for
// serializing concurrent writes to the same writer.
func WriteMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	frame := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
	if _, err := w.Write([]byte(frame)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message body from the reader. Header lines
// are consumed until the blank separator line; unknown headers are skipped.
// A frame without a valid Content-Length header is an error.
func ReadMessage(r *bufio.Reader) ([]byte, error) {
	contentLength := -1

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if strings.HasPrefix(line, contentLengthHeader) {
			lengthStr := strings.TrimSpace(strings.TrimPrefix(line, contentLengthHeader))
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil || contentLength < 0 {
				return nil, fmt.Errorf("invalid Content-Length header: %q", lengthStr)
			}
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("no Content-Length header found")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return body, nil
}
