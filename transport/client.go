package transport

import (
	"net"
)

// Client is a single accepted connection, as seen by the connection handler.
type Client interface {
	// Read returns the next chunk of data. The returned slice is valid only until the next call.
	Read() ([]byte, error)
	Write([]byte) (int, error)
	Remote() net.Addr
	Close() error
}

type client struct {
	conn net.Conn
	buff []byte
}

func NewClient(conn net.Conn, buff []byte) Client {
	return &client{
		conn: conn,
		buff: buff,
	}
}

// Read reads data into the internal buffer and returns a piece of it back. Reads block
// for as long as the peer stays silent.
func (c *client) Read() ([]byte, error) {
	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Write writes data into the underlying connection.
func (c *client) Write(b []byte) (int, error) {
	return c.conn.Write(b)
}

// Remote returns the remote address of the connection.
func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the connection.
func (c *client) Close() error {
	return c.conn.Close()
}
