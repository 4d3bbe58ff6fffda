package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/schnell/transport"
)

var _ transport.Client = new(Client)

// Client returns the chunks it was initialised with one by one, and io.EOF after them,
// unless looped. It also tracks all the written data and close calls, making it thereby
// a universal mock suitable for most of the tests.
type Client struct {
	loop     bool
	pointer  int
	closes   int
	writes   int
	data     [][]byte
	written  []byte
	remote   net.Addr
	readErr  error
	writeErr error
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data:    data,
		readErr: io.EOF,
		remote:  &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321},
	}
}

func (c *Client) Read() ([]byte, error) {
	if c.closes > 0 {
		return nil, net.ErrClosed
	}

	if c.pointer >= len(c.data) {
		if !c.loop || len(c.data) == 0 {
			return nil, c.readErr
		}

		c.pointer = 0
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Write(p []byte) (int, error) {
	c.writes++
	if c.writeErr != nil {
		return 0, c.writeErr
	}

	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *Client) Remote() net.Addr {
	return c.remote
}

func (c *Client) Close() error {
	c.closes++
	return nil
}

// LoopReads makes the client start over once all the chunks are returned.
func (c *Client) LoopReads() *Client {
	c.loop = true
	return c
}

// ReadError replaces io.EOF, returned after the data is exhausted.
func (c *Client) ReadError(err error) *Client {
	c.readErr = err
	return c
}

// WriteError makes every write fail with the error.
func (c *Client) WriteError(err error) *Client {
	c.writeErr = err
	return c
}

// Written returns everything written so far.
func (c *Client) Written() string {
	return string(c.written)
}

// Writes returns the number of Write calls.
func (c *Client) Writes() int {
	return c.writes
}

// Closes returns the number of Close calls.
func (c *Client) Closes() int {
	return c.closes
}
