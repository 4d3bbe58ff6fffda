package http

import (
	"errors"

	"github.com/indigo-web/schnell/http/cookie"
	"github.com/indigo-web/schnell/http/mime"
	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/kv"
	"github.com/indigo-web/utils/strcomp"
	json "github.com/json-iterator/go"
	"golang.org/x/net/http/httpguts"
)

const (
	// why 7? There's no theory behind this number. Most responses carry just a few
	// headers beyond the ones the serializer writes by itself.
	preallocRespHeaders = 7
	DefaultContentType  = mime.Plain
)

// Response is a plain description of what must be sent back. It doesn't hold any connection
// state, so can be built anywhere and serialized as many times as needed.
type Response struct {
	// Code is written as is, even if it's outside the 100-599 range. In this case the reason
	// phrase is left empty.
	Code status.Code
	// ContentType is always rendered as the Content-Type header.
	ContentType string
	Body        []byte
	// Headers are rendered in insertion order after Content-Type and Content-Length.
	Headers *kv.Storage
	// Cookies hold raw Set-Cookie values, one header line per entry.
	Cookies []string
}

// NewResponse returns a response with the given code, content type and body. Empty content
// type falls back to text/plain.
func NewResponse(code status.Code, contentType, body string) *Response {
	if len(contentType) == 0 {
		contentType = DefaultContentType
	}

	var b []byte
	if len(body) > 0 {
		b = []byte(body)
	}

	return &Response{
		Code:        code,
		ContentType: contentType,
		Body:        b,
		Headers:     kv.NewPrealloc(preallocRespHeaders),
	}
}

// AddHeader sets the header value. Repeating a key overwrites the previous value in place.
// Content-Type is redirected into the ContentType field and Content-Length is ignored, as it's
// always computed from the body. Keys that aren't valid tokens and values containing control
// characters are silently dropped, as they would break the message framing.
func (r *Response) AddHeader(key, value string) *Response {
	if !validHeader(key, value) {
		return r
	}

	switch {
	case strcomp.EqualFold(key, "content-type"):
		r.ContentType = value
		return r
	case strcomp.EqualFold(key, "content-length"):
		return r
	}

	if r.Headers == nil {
		r.Headers = kv.NewPrealloc(preallocRespHeaders)
	}

	r.Headers.Set(key, value)
	return r
}

// AddCookie appends a raw Set-Cookie value. Values with control characters are dropped.
func (r *Response) AddCookie(raw string) *Response {
	if !httpguts.ValidHeaderFieldValue(raw) {
		return r
	}

	r.Cookies = append(r.Cookies, raw)
	return r
}

// SetCookie renders the cookie with its attributes and appends it as a Set-Cookie value.
func (r *Response) SetCookie(c cookie.Cookie) *Response {
	return r.AddCookie(c.String())
}

// WithCode sets the response code.
func (r *Response) WithCode(code status.Code) *Response {
	r.Code = code
	return r
}

// WithContentType sets the Content-Type header value.
func (r *Response) WithContentType(value mime.MIME) *Response {
	r.ContentType = value
	return r
}

// WithBody sets the response's body to the passed slice WITHOUT COPYING.
func (r *Response) WithBody(body []byte) *Response {
	r.Body = body
	return r
}

// WithText sets a text/plain body.
func (r *Response) WithText(body string) *Response {
	r.Body = []byte(body)
	return r.WithContentType(mime.Plain)
}

// WithHTML sets a text/html body.
func (r *Response) WithHTML(body string) *Response {
	r.Body = []byte(body)
	return r.WithContentType(mime.HTML)
}

// WithJSON serializes the model into the body and sets application/json content type.
// The response is left untouched if the model can't be serialized.
func (r *Response) WithJSON(model any) (*Response, error) {
	body, err := json.ConfigCompatibleWithStandardLibrary.Marshal(model)
	if err != nil {
		return r, err
	}

	r.Body = body
	return r.WithContentType(mime.JSON), nil
}

// WithRedirect makes the response a 302 Found pointing to the location.
func (r *Response) WithRedirect(location string) *Response {
	return r.WithCode(status.Found).AddHeader("Location", location)
}

// WithError turns the response into an error one. If an instance of status.HTTPError is
// passed, its code and message are used. Any other error results in 500 Internal Server
// Error without exposing the error text. Nil error leaves the response untouched.
func (r *Response) WithError(err error) *Response {
	if err == nil {
		return r
	}

	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = status.ErrInternalServerError.(status.HTTPError)
	}

	return r.WithCode(httpErr.Code).WithText(httpErr.Message)
}

// Text is a shorthand for 200 OK with a text/plain body.
func Text(body string) *Response {
	return NewResponse(status.OK, mime.Plain, body)
}

// HTML is a shorthand for 200 OK with a text/html body.
func HTML(body string) *Response {
	return NewResponse(status.OK, mime.HTML, body)
}

// JSON is a shorthand for 200 OK with the model serialized as JSON. Serialization failure
// results in 500 Internal Server Error.
func JSON(model any) *Response {
	resp := NewResponse(status.OK, mime.JSON, "")
	if _, err := resp.WithJSON(model); err != nil {
		return resp.WithError(err)
	}

	return resp
}

// Redirect is a shorthand for 302 Found with the Location header.
func Redirect(location string) *Response {
	return NewResponse(status.Found, "", "").WithRedirect(location)
}

// Error builds an error response. See Response.WithError for details.
func Error(err error) *Response {
	return NewResponse(status.OK, "", "").WithError(err)
}
