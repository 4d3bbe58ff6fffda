package http

import (
	"strconv"

	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/utils/strcomp"
	"golang.org/x/net/http/httpguts"
)

const (
	protocol = "HTTP/1.1 "
	crlf     = "\r\n"
)

// Serialize renders the whole response into a fresh slice. Serializing the same response
// multiple times always yields identical bytes.
func (r *Response) Serialize() []byte {
	return r.AppendTo(make([]byte, 0, r.estimate()))
}

// AppendTo appends the wire representation of the response, body included, to buff.
func (r *Response) AppendTo(buff []byte) []byte {
	return append(r.AppendHead(buff), r.Body...)
}

// AppendHead appends the status line and the header section, including the empty line
// terminating it. Content-Length always reflects the body length, even though the body
// itself isn't written. That's exactly what responses to HEAD requests need.
//
// Headers and cookies put into the fields directly are checked the same way AddHeader and
// AddCookie check them: Content-Type and Content-Length keys are skipped, as well as pairs
// that would break the message framing.
func (r *Response) AppendHead(buff []byte) []byte {
	buff = append(buff, protocol...)
	buff = strconv.AppendUint(buff, uint64(r.Code), 10)
	buff = append(buff, ' ')
	buff = append(buff, status.Text(r.Code)...)
	buff = append(buff, crlf...)

	contentType := r.ContentType
	if len(contentType) == 0 || !httpguts.ValidHeaderFieldValue(contentType) {
		contentType = DefaultContentType
	}

	buff = appendHeader(buff, "Content-Type", contentType)
	buff = append(buff, "Content-Length: "...)
	buff = strconv.AppendInt(buff, int64(len(r.Body)), 10)
	buff = append(buff, crlf...)

	if r.Headers != nil {
		for key, value := range r.Headers.Pairs() {
			if isReserved(key) || !validHeader(key, value) {
				continue
			}

			buff = appendHeader(buff, key, value)
		}
	}

	for _, c := range r.Cookies {
		if !httpguts.ValidHeaderFieldValue(c) {
			continue
		}

		buff = appendHeader(buff, "Set-Cookie", c)
	}

	return append(buff, crlf...)
}

func (r *Response) estimate() int {
	const (
		statusLine   = len(protocol) + len("000 ") + len("Network Authentication Required") + len(crlf)
		fixedHeaders = len("Content-Type: \r\nContent-Length: 00000000000000000000\r\n")
	)

	size := statusLine + fixedHeaders + len(r.ContentType) + len(crlf) + len(r.Body)
	if r.Headers != nil {
		for _, pair := range r.Headers.Expose() {
			size += len(pair.Key) + len(": ") + len(pair.Value) + len(crlf)
		}
	}

	for _, c := range r.Cookies {
		size += len("Set-Cookie: ") + len(c) + len(crlf)
	}

	return size
}

// isReserved tells whether the header is always rendered by the serializer itself.
func isReserved(key string) bool {
	return strcomp.EqualFold(key, "content-type") || strcomp.EqualFold(key, "content-length")
}

func validHeader(key, value string) bool {
	return httpguts.ValidHeaderFieldName(key) && httpguts.ValidHeaderFieldValue(value)
}

func appendHeader(buff []byte, key, value string) []byte {
	buff = append(buff, key...)
	buff = append(buff, ':', ' ')
	buff = append(buff, value...)
	return append(buff, crlf...)
}
