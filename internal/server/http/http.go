package http

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/indigo-web/schnell/config"
	"github.com/indigo-web/schnell/http"
	"github.com/indigo-web/schnell/http/method"
	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/internal/protocol/http1"
	"github.com/indigo-web/schnell/kv"
	"github.com/indigo-web/schnell/telemetry"
	"github.com/indigo-web/schnell/transport"
)

// HandlerFault is a panic recovered from the handler.
type HandlerFault struct {
	Value any
	Stack []byte
}

func (h *HandlerFault) Error() string {
	return fmt.Sprintf("handler panicked: %v", h.Value)
}

func (h *HandlerFault) Unwrap() error {
	err, _ := h.Value.(error)
	return err
}

// Server serves exactly one request per connection.
type Server struct {
	cfg     *config.Config
	handler http.Handler
	tel     *telemetry.Telemetry
}

func NewServer(cfg *config.Config, handler http.Handler, tel *telemetry.Telemetry) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		tel:     tel,
	}
}

// Serve reads the request, responds and closes the client. Nothing is written if the peer
// goes away before the request is complete.
func (s *Server) Serve(client transport.Client) {
	defer func() {
		_ = client.Close()
	}()

	ctx := context.Background()
	request := http.NewRequest(client.Remote())
	parser := http1.NewParser(s.cfg, request)

	for {
		data, err := client.Read()
		if len(data) > 0 {
			state, _, perr := parser.Parse(data)
			switch state {
			case http1.Pending:
			case http1.Completed:
				s.respond(ctx, client, request)
				return
			case http1.Error:
				s.reject(ctx, client, perr)
				return
			default:
				panic(fmt.Sprintf("BUG: unexpected parser state: %s", state))
			}
		}

		if err != nil {
			s.tel.Logger.DebugContext(ctx, "connection closed before the request was complete",
				"remote", client.Remote(), "error", err)
			return
		}
	}
}

func (s *Server) respond(ctx context.Context, client transport.Client, request *http.Request) {
	ctx, observation := s.tel.StartRequest(ctx, request.Method.String(), request.Path)
	request.Ctx = ctx

	response := closing(s.invoke(request))
	buff := make([]byte, 0, s.cfg.NET.WriteBufferSize)
	if request.Method == method.HEAD {
		buff = response.AppendHead(buff)
	} else {
		buff = response.AppendTo(buff)
	}

	s.write(ctx, client, buff)
	observation.End(ctx, response.Code)
}

func (s *Server) reject(ctx context.Context, client transport.Client, err error) {
	response := closing(http.Error(err))
	s.tel.ParseError(ctx, err, response.Code)
	s.write(ctx, client, response.AppendTo(make([]byte, 0, s.cfg.NET.WriteBufferSize)))
}

func (s *Server) invoke(request *http.Request) (response *http.Response) {
	defer func() {
		if v := recover(); v != nil {
			fault := &HandlerFault{Value: v, Stack: debug.Stack()}
			s.tel.HandlerFault(request.Ctx, fault, fault.Stack)
			response = http.Error(status.ErrInternalServerError)
		}
	}()

	return notNil(s.handler(request))
}

func (s *Server) write(ctx context.Context, client transport.Client, data []byte) {
	if _, err := client.Write(data); err != nil {
		// the peer is gone, there's nobody to tell about it
		s.tel.Logger.DebugContext(ctx, "failed to write the response",
			"remote", client.Remote(), "error", err)
	}
}

func notNil(response *http.Response) *http.Response {
	if response != nil {
		return response
	}

	return http.NewResponse(status.OK, "", "")
}

// closing returns a shallow copy of the response with the Connection: close header. Handlers
// are free to return the same response instance to concurrent requests, so it's never
// modified in place.
func closing(response *http.Response) *http.Response {
	c := *response
	if c.Headers == nil {
		c.Headers = kv.New()
	} else {
		c.Headers = c.Headers.Clone()
	}

	return c.AddHeader("Connection", "close")
}
