package schnell

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/indigo-web/schnell/config"
	"github.com/indigo-web/schnell/http"
	"github.com/indigo-web/schnell/internal/pool"
	httpserver "github.com/indigo-web/schnell/internal/server/http"
	"github.com/indigo-web/schnell/telemetry"
	"github.com/indigo-web/schnell/transport"
)

// App binds the listening socket and dispatches accepted connections across a fixed number
// of workers. Every connection serves exactly one request.
type App struct {
	addr      string
	cfg       *config.Config
	telemetry []telemetry.Option
	hooks     hooks

	mu      sync.Mutex
	sock    *transport.TCP
	stopped bool
}

// New returns a new App instance. The address is in the host:port form, the port may be 0.
func New(addr string) *App {
	return &App{
		addr: addr,
		cfg:  config.Default(),
	}
}

// Tune replaces default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Telemetry sets the options the logger, traces and metrics are constructed with. By default,
// globally registered OpenTelemetry providers and slog.Default() are used.
func (a *App) Telemetry(opts ...telemetry.Option) *App {
	a.telemetry = append(a.telemetry, opts...)
	return a
}

// NotifyOnStart calls the callback as soon as the socket is bound. Connections arriving
// from this moment on are queued by the kernel until accepted.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback once the socket is closed and every accepted connection
// is served.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Serve blocks until the app is stopped or the listening socket fails. Failure to bind is
// returned as *transport.BindError, a broken socket as *transport.AcceptError. Stop results
// in nil error.
func (a *App) Serve(handler http.Handler) error {
	tel, err := telemetry.New(a.telemetry...)
	if err != nil {
		return err
	}

	sock, err := transport.Bind(a.addr)
	if err != nil {
		return err
	}

	if !a.attach(sock) {
		return sock.Close()
	}

	ctx := context.Background()
	server := httpserver.NewServer(a.cfg, handler, tel)
	workers := pool.New(a.cfg.Workers.Count, func(conn net.Conn) {
		server.Serve(transport.NewClient(conn, make([]byte, a.cfg.NET.ReadBufferSize)))
	}, func(value any, stack []byte) {
		tel.Logger.ErrorContext(ctx, "worker recovered from a panic",
			"panic", value, "stack", string(stack))
	})

	unregister, err := tel.ObserveQueue(workers.Len)
	if err != nil {
		_ = sock.Close()
		workers.Stop()
		return err
	}

	tel.Logger.InfoContext(ctx, "listening",
		"addr", sock.Addr().String(), "workers", workers.Workers())
	callIfNotNil(a.hooks.OnStart)

	err = sock.Listen(a.cfg.NET, func(conn net.Conn) {
		tel.Accepted(ctx)
		if !workers.Submit(conn) {
			_ = conn.Close()
		}
	}, func(err error, delay time.Duration) {
		tel.AcceptError(ctx, err, transport.ErrnoName(err), delay)
	})

	_ = sock.Close()
	workers.Stop()
	_ = unregister()
	tel.Logger.InfoContext(ctx, "stopped", "addr", sock.Addr().String())
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Stop closes the listening socket. Serve returns once connections already accepted are
// served. It's safe to call Stop multiple times, also before Serve.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	if a.sock == nil {
		return nil
	}

	return a.sock.Close()
}

// Addr returns the address the app is actually bound to, or nil if it isn't started yet.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sock == nil {
		return nil
	}

	return a.sock.Addr()
}

func (a *App) attach(sock *transport.TCP) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return false
	}

	a.sock = sock
	return true
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
