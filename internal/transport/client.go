// Package transport implements the stdio JSON-RPC channel to a language
// server subprocess: framed writes, a background reader correlating
// responses to pending requests by id, and process lifecycle.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/common"
	"github.com/CMU-MCDS-Capstone-LLM/LSP-Repograph/internal/protocol"
)

const (
	// readBufferSize is sized for large responses, in particular
	// workspace/symbol results on big workspaces.
	readBufferSize = 1024 * 1024

	gracefulExitTimeout = 8 * time.Second
	interruptTimeout    = 2 * time.Second
	killTimeout         = 5 * time.Second
)

// Config describes the language server subprocess to launch.
type Config struct {
	Command    string
	Args       []string
	WorkingDir string
}

// Handler processes a server-originated request or notification. For
// requests the returned value is sent back as the response result; for
// notifications it is discarded.
type Handler func(params json.RawMessage) (interface{}, error)

// Client is a stdio JSON-RPC client for a single language server process.
// One background goroutine drains the server's stdout; request callers block
// on their own response channel only, so concurrent requests are serviced
// independently of issue order.
type Client struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// writeMu serializes frame writes to stdin. It is never held while
	// waiting for a response.
	writeMu sync.Mutex

	mu       sync.Mutex
	active   bool
	nextID   int64
	pending  map[int64]chan *protocol.Message
	handlers map[string]Handler

	stopCh chan struct{}
	done   chan struct{}

	logger *common.SafeLogger
}

// NewClient creates a client for the given server command. Start must be
// called before any request is issued.
func NewClient(config Config) *Client {
	return &Client{
		config:   config,
		pending:  make(map[int64]chan *protocol.Message),
		handlers: make(map[string]Handler),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		logger:   common.LSPLogger,
	}
}

// RegisterHandler installs a handler for a server-originated method. All
// handlers must be registered before the initialize request goes out, since
// a compliant server may start emitting notifications and requests
// immediately after responding to it.
func (c *Client) RegisterHandler(method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = h
}

// Start launches the subprocess and the background reader.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return errors.New("client already active")
	}

	c.cmd = exec.CommandContext(ctx, c.config.Command, c.config.Args...)
	if c.config.WorkingDir != "" {
		c.cmd.Dir = c.config.WorkingDir
	}

	var err error
	if c.stdin, err = c.cmd.StdinPipe(); err != nil {
		return &TransportError{Op: "stdin pipe", Err: err}
	}
	if c.stdout, err = c.cmd.StdoutPipe(); err != nil {
		return &TransportError{Op: "stdout pipe", Err: err}
	}
	if c.stderr, err = c.cmd.StderrPipe(); err != nil {
		return &TransportError{Op: "stderr pipe", Err: err}
	}

	if err := c.cmd.Start(); err != nil {
		return &TransportError{Op: "launch", Err: err}
	}

	c.active = true

	go c.readLoop()
	go c.logStderr()

	return nil
}

// IsActive reports whether the client has been started and not stopped.
func (c *Client) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SendRequest issues a request and blocks until its response arrives, the
// context expires, or the client stops. A context deadline expiry is
// surfaced as ErrTimeout; the pending entry is removed so a late response is
// discarded safely by the reader.
func (c *Client) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, ErrClientNotActive
	}
	c.nextID++
	id := c.nextID
	respCh := make(chan *protocol.Message, 1)
	c.pending[id] = respCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	msg, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}
	if err := c.writeMessage(msg); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrServerExited
		}
		if resp.Error != nil {
			return nil, &ProtocolError{Method: method, Err: resp.Error}
		}
		return resp.Result, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, ErrClientStopped
	}
}

// SendNotification sends a fire-and-forget notification. No id is assigned
// and no response is expected.
func (c *Client) SendNotification(_ context.Context, method string, params interface{}) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrClientNotActive
	}
	c.mu.Unlock()

	msg, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	return c.writeMessage(msg)
}

func (c *Client) writeMessage(msg *protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := protocol.WriteMessage(c.stdin, msg); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// readLoop is the single background reader. It owns dispatch: responses are
// matched to pending ids, notifications and server-originated requests go
// through the handler table. End-of-stream fails all pending requests.
func (c *Client) readLoop() {
	defer close(c.done)
	defer c.failPending()

	reader := bufio.NewReaderSize(c.stdout, readBufferSize)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		body, err := protocol.ReadMessage(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				c.logger.Debug("server closed connection")
			} else {
				c.logger.Error("fatal read error: %v", err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			c.logger.Warn("dropping undecodable message: %v", err)
			continue
		}

		switch {
		case msg.IsResponse():
			c.dispatchResponse(&msg)
		case msg.IsRequest():
			c.dispatchServerRequest(&msg)
		case msg.IsNotification():
			c.dispatchNotification(&msg)
		default:
			c.logger.Warn("dropping message with neither id nor method")
		}
	}
}

// dispatchResponse completes the pending request matching the response id.
// The lookup-and-remove is atomic, so a request that already timed out (and
// removed its entry) sees its late response discarded here without effect on
// any other in-flight request.
func (c *Client) dispatchResponse(msg *protocol.Message) {
	id, ok := msg.IntID()
	if !ok {
		c.logger.Warn("dropping response with non-integer id %s", msg.ID)
		return
	}

	c.mu.Lock()
	respCh, exists := c.pending[id]
	if exists {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !exists {
		c.logger.Debug("discarding response for unknown or timed-out request id %d", id)
		return
	}
	respCh <- msg
}

func (c *Client) dispatchServerRequest(msg *protocol.Message) {
	c.mu.Lock()
	h := c.handlers[msg.Method]
	c.mu.Unlock()

	var result interface{}
	if h != nil {
		var err error
		result, err = h(msg.Params)
		if err != nil {
			c.logger.Warn("handler for %s failed: %v", msg.Method, err)
			result = nil
		}
	} else {
		// Unhandled server requests are acknowledged with an empty result
		// so the server never stalls waiting on us.
		c.logger.Debug("acknowledging unhandled server request %s", msg.Method)
	}

	resp, err := protocol.NewResponse(msg.ID, result)
	if err != nil {
		c.logger.Error("failed to build response for %s: %v", msg.Method, err)
		return
	}
	if err := c.writeMessage(resp); err != nil {
		c.logger.Error("failed to answer server request %s: %v", msg.Method, err)
	}
}

func (c *Client) dispatchNotification(msg *protocol.Message) {
	c.mu.Lock()
	h := c.handlers[msg.Method]
	c.mu.Unlock()

	if h == nil {
		c.logger.Debug("ignoring notification %s", msg.Method)
		return
	}
	if _, err := h(msg.Params); err != nil {
		c.logger.Warn("notification handler for %s failed: %v", msg.Method, err)
	}
}

// failPending wakes every still-waiting request with a server-exited error
// by closing its response channel.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Stop terminates the subprocess and reader. It is idempotent. Graceful
// protocol shutdown (shutdown request + exit notification) is the session's
// job before calling Stop; here the process is given a bounded grace period
// and then escalated to interrupt and kill.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	if c.stdin != nil {
		_ = c.stdin.Close()
	}
	cmd := c.cmd
	c.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		c.waitOrKill(cmd)
	}

	if c.stdout != nil {
		_ = c.stdout.Close()
	}
	if c.stderr != nil {
		_ = c.stderr.Close()
	}

	<-c.done
	return nil
}

func (c *Client) waitOrKill(cmd *exec.Cmd) {
	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	select {
	case err := <-waitDone:
		if err != nil {
			c.logger.Debug("server exited with error: %v", err)
		}
		return
	case <-time.After(gracefulExitTimeout):
		c.logger.Warn("server did not exit within %s, sending interrupt", gracefulExitTimeout)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		c.logger.Warn("failed to send interrupt: %v", err)
	}

	select {
	case <-waitDone:
		return
	case <-time.After(interruptTimeout):
	}

	c.logger.Warn("server did not respond to interrupt, killing")
	if err := cmd.Process.Kill(); err != nil {
		c.logger.Error("failed to kill server process: %v", err)
	}
	select {
	case <-waitDone:
	case <-time.After(killTimeout):
		c.logger.Warn("process cleanup may be incomplete after kill")
	}
}

func (c *Client) logStderr() {
	scanner := bufio.NewScanner(c.stderr)
	scanner.Buffer(make([]byte, 64*1024), readBufferSize)
	for scanner.Scan() {
		c.logger.Debug("server stderr: %s", scanner.Text())
	}
}
