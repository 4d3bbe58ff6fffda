package http

import (
	"context"
	"net"

	"github.com/indigo-web/schnell/http/cookie"
	"github.com/indigo-web/schnell/http/method"
	"github.com/indigo-web/schnell/kv"
)

var zeroContext = context.Background()

// Request represents a parsed HTTP request. It must be treated as read-only by handlers.
type Request struct {
	// Method is an enum representing the request method. It's never method.Unknown for
	// requests reaching a handler.
	Method method.Method
	// Path is the request target without the query part. It isn't decoded.
	Path string
	// Query holds decoded query parameters.
	Query *kv.Storage
	// Version is the protocol token exactly as received, e.g. HTTP/1.1.
	Version string
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	// Repeated headers overwrite earlier values.
	Headers *kv.Storage
	// Body is never longer than the declared Content-Length.
	Body []byte
	// Remote holds the remote address. Please note that this is generally not a good parameter
	// to identify a user, because there might be proxies in the middle.
	Remote net.Addr
	// Ctx is the context the request is served within. It carries the tracing span, if any.
	Ctx context.Context
	jar cookie.Jar
}

func NewRequest(remote net.Addr) *Request {
	return &Request{
		Method:  method.Unknown,
		Query:   kv.New(),
		Headers: kv.New(),
		Remote:  remote,
		Ctx:     zeroContext,
	}
}

// Cookies returns a cookie jar with parsed cookies key-value pairs, and an error if the syntax
// is malformed. The result isn't cached.
func (r *Request) Cookies() (cookie.Jar, error) {
	if r.jar == nil {
		r.jar = cookie.NewJar()
	}

	r.jar.Clear()

	value, found := r.Headers.Get("cookie")
	if !found {
		return r.jar, nil
	}

	if err := cookie.Parse(r.jar, value); err != nil {
		return nil, err
	}

	return r.jar, nil
}

// Reset the request, so it can be parsed into once again.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.Query.Clear()
	r.Version = ""
	r.Headers.Clear()
	r.Body = nil
	r.Ctx = zeroContext
}
