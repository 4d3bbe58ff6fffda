package cookie

import (
	"strings"

	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/kv"
)

// Jar holds cookies received from a user-agent as plain name-value pairs.
type Jar = *kv.Storage

func NewJar() Jar {
	return kv.New()
}

var ErrBadCookie = status.NewError(status.BadRequest, "cookie has a malformed syntax")

// Parse parses the Cookie request header value into the jar. It isn't applicable for
// Set-Cookie values.
func Parse(jar Jar, data string) error {
	for len(data) > 0 {
		eq := strings.IndexByte(data, '=')
		if eq == -1 {
			break
		}

		key := data[:eq]
		data = data[eq+1:]

		if len(key) == 0 {
			return ErrBadCookie
		}

		var value string

		if cs := strings.IndexByte(data, ';'); cs != -1 {
			value, data = data[:cs], strings.TrimLeft(data[cs+1:], " ")
		} else {
			value, data = data, ""
		}

		jar.Set(key, value)
	}

	if len(data) != 0 {
		return ErrBadCookie
	}

	return nil
}
