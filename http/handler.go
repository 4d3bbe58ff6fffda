package http

// Handler produces a response to the request. Returning nil results in an empty 200 OK.
// Panics are recovered and turned into 500 Internal Server Error.
type Handler func(request *Request) *Response
