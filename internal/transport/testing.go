package transport

import "io"

// NewClientForTesting wires a client over the provided pipes without
// launching a subprocess and starts its background reader. Stop works as
// usual except that there is no process to wait for.
func NewClientForTesting(stdin io.WriteCloser, stdout io.ReadCloser) *Client {
	c := NewClient(Config{Command: "fake"})
	c.stdin = stdin
	c.stdout = stdout
	c.active = true
	go c.readLoop()
	return c
}
