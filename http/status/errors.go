package status

// HTTPError is an error that carries the status code a response to it must be sent with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// Request parsing errors. All of them are recovered by the connection handler and turned
// into a response with the corresponding code.
var (
	ErrHeaderTooLarge       = NewError(RequestHeaderFieldsTooLarge, "request header section is too large")
	ErrMalformedRequestLine = NewError(BadRequest, "malformed request line")
	ErrMalformedHeader      = NewError(BadRequest, "malformed header line")
	ErrUnsupportedMethod    = NewError(BadRequest, "request method is not supported")
	ErrInvalidContentLength = NewError(BadRequest, "invalid Content-Length value")
	ErrUnsupportedVersion   = NewError(HTTPVersionNotSupported, "HTTP version not supported")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrBadQuery             = NewError(BadRequest, "malformed query string")
	ErrURLDecoding          = NewError(BadRequest, "invalid urlencoded sequence")
)

var (
	ErrBadRequest          = NewError(BadRequest, "bad request")
	ErrNotFound            = NewError(NotFound, "not found")
	ErrMethodNotAllowed    = NewError(MethodNotAllowed, "method not allowed")
	ErrInternalServerError = NewError(InternalServerError, "internal server error")
	ErrServiceUnavailable  = NewError(ServiceUnavailable, "service unavailable")
)
