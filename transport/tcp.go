package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/indigo-web/schnell/config"
)

// TCP is a bound listening socket.
type TCP struct {
	l      net.Listener
	closed atomic.Bool
}

// Bind creates the listening socket. Failure is reported as *BindError.
func Bind(addr string) (*TCP, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	l, err := net.ListenTCP("tcp", tcpaddr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	return newTCP(l), nil
}

func newTCP(l net.Listener) *TCP {
	return &TCP{l: l}
}

// Addr returns the actual address the socket is bound to. It's useful when binding to
// the port 0.
func (t *TCP) Addr() net.Addr {
	return t.l.Addr()
}

// Listen accepts connections until the socket is closed, passing each one to cb. The loop
// doesn't spawn anything by itself, so cb must return quickly.
//
// Transient errors (e.g. running out of file descriptors or an aborted handshake) are
// passed to onError together with the pause before the next attempt. The pause starts at
// cfg.AcceptRetryDelay and doubles with every consecutive error up to
// cfg.AcceptRetryDelayMax. Any other error stops the loop and is returned as *AcceptError.
// Closing the socket stops the loop with nil error.
func (t *TCP) Listen(cfg config.NET, cb func(conn net.Conn), onError func(err error, delay time.Duration)) error {
	var delay time.Duration

	for {
		conn, err := t.l.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if !isTransient(err) {
				return &AcceptError{Err: err}
			}

			delay = backoff(delay, cfg)
			if onError != nil {
				onError(err, delay)
			}

			time.Sleep(delay)
			continue
		}

		delay = 0
		cb(conn)
	}
}

// Close stops the listening loop. Already accepted connections aren't affected.
func (t *TCP) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	return t.l.Close()
}

func backoff(prev time.Duration, cfg config.NET) time.Duration {
	if prev == 0 {
		return cfg.AcceptRetryDelay
	}

	return min(prev*2, cfg.AcceptRetryDelayMax)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
