package transport

import (
	"fmt"
)

// BindError means the listening socket could not be created. It's fatal.
type BindError struct {
	Addr string
	Err  error
}

func (b *BindError) Error() string {
	return fmt.Sprintf("bind %s: %s", b.Addr, b.Err)
}

func (b *BindError) Unwrap() error {
	return b.Err
}

// AcceptError is a non-recoverable failure of the listening socket.
type AcceptError struct {
	Err error
}

func (a *AcceptError) Error() string {
	return "accept: " + a.Err.Error()
}

func (a *AcceptError) Unwrap() error {
	return a.Err
}
