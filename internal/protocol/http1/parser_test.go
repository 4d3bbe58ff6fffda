package http1

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/schnell/config"
	"github.com/indigo-web/schnell/http"
	"github.com/indigo-web/schnell/http/method"
	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/kv"
	"github.com/stretchr/testify/require"
)

func getParser(cfg *config.Config) (*Parser, *http.Request) {
	request := http.NewRequest(nil)
	return NewParser(cfg, request), request
}

func genHeaders(n int) (out []string) {
	for range n {
		out = append(out, genHeader())
	}

	return out
}

func genHeader() string {
	return fmt.Sprintf("%[1]s: %[1]s", uniuri.NewLen(16))
}

func generateRequest(path string, headers []string, body string) []byte {
	var b strings.Builder
	b.WriteString("POST ")
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")
	for _, header := range headers {
		b.WriteString(header)
		b.WriteString("\r\n")
	}

	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n\r\n")
	b.WriteString(body)

	return []byte(b.String())
}

func BenchmarkParser(b *testing.B) {
	cfg := config.Default()

	for _, n := range []int{5, 10, 50} {
		data := generateRequest("/"+strings.Repeat("a", 500), genHeaders(n), "Hello, world!")

		b.Run(fmt.Sprintf("with %d headers", n), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()

			for range b.N {
				parser, _ := getParser(cfg)
				_, _, _ = parser.Parse(data)
			}
		})
	}
}

type wantedRequest struct {
	Headers *kv.Storage
	Query   *kv.Storage
	Path    string
	Version string
	Body    string
	Method  method.Method
}

func compareRequests(t *testing.T, wanted wantedRequest, actual *http.Request) {
	require.Equal(t, wanted.Method, actual.Method)
	require.Equal(t, wanted.Path, actual.Path)
	require.Equal(t, wanted.Version, actual.Version)
	require.Equal(t, wanted.Body, string(actual.Body))

	if wanted.Headers == nil {
		wanted.Headers = kv.New()
	}

	require.Equal(t, wanted.Headers.Expose(), actual.Headers.Expose())

	if wanted.Query != nil {
		require.Equal(t, wanted.Query.Expose(), actual.Query.Expose())
	}
}

func splitIntoParts(req []byte, n int) (parts [][]byte) {
	for i := 0; i < len(req); i += n {
		end := min(i+n, len(req))
		parts = append(parts, req[i:end])
	}

	return parts
}

func feedPartially(p *Parser, raw []byte, n int) (state State, extra []byte, err error) {
	parts := splitIntoParts(raw, n)

	for i, chunk := range parts {
		state, extra, err = p.Parse(chunk)
		switch state {
		case Error:
			return state, extra, err
		case Completed:
			if i+1 < len(parts) {
				return state, extra, errors.New("not all chunks were fed")
			}

			return state, extra, err
		}
	}

	return state, extra, err
}

func TestParser(t *testing.T) {
	cfg := config.Default()

	t.Run("simple GET", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\n\r\n"
		parser, request := getParser(cfg)
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Empty(t, extra)

		compareRequests(t, wantedRequest{
			Method:  method.GET,
			Path:    "/",
			Version: "HTTP/1.1",
		}, request)
	})

	t.Run("HTTP/1.0", func(t *testing.T) {
		parser, request := getParser(cfg)
		state, _, err := parser.Parse([]byte("HEAD /index.html HTTP/1.0\r\n\r\n"))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, method.HEAD, request.Method)
		require.Equal(t, "HTTP/1.0", request.Version)
	})

	t.Run("GET with headers", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nHello: World!\r\nEaster:Egg  \r\n\r\n"
		parser, request := getParser(cfg)
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Empty(t, extra)

		compareRequests(t, wantedRequest{
			Method:  method.GET,
			Path:    "/",
			Version: "HTTP/1.1",
			Headers: kv.New().Set("Hello", "World!").Set("Easter", "Egg"),
		}, request)
		require.Equal(t, "World!", request.Headers.Value("hello"))
	})

	t.Run("repeated header overwrites", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nAccept: one,two\r\nHost: localhost\r\naccept: three\r\n\r\n"
		parser, request := getParser(cfg)
		state, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)

		require.Equal(t, []kv.Pair{
			{"Accept", "three"},
			{"Host", "localhost"},
		}, request.Headers.Expose())
	})

	t.Run("fuzz GET", func(t *testing.T) {
		raw := "GET /hello?name=world HTTP/1.1\r\nHello: World!\r\nEaster: Egg\r\n\r\n"

		for i := 1; i <= len(raw); i++ {
			parser, request := getParser(cfg)
			state, extra, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.Empty(t, extra)
			require.Equal(t, Completed, state, i)

			compareRequests(t, wantedRequest{
				Method:  method.GET,
				Path:    "/hello",
				Version: "HTTP/1.1",
				Headers: kv.New().Set("Hello", "World!").Set("Easter", "Egg"),
				Query:   kv.New().Set("name", "world"),
			}, request)
		}
	})

	t.Run("fuzz POST", func(t *testing.T) {
		body := "Hello, world! " + uniuri.NewLen(100)
		raw := generateRequest("/submit", []string{"Content-Type: text/plain"}, body)

		for i := 1; i <= len(raw); i++ {
			parser, request := getParser(cfg)
			state, extra, err := feedPartially(parser, raw, i)
			require.NoError(t, err, i)
			require.Empty(t, extra)
			require.Equal(t, Completed, state, i)

			compareRequests(t, wantedRequest{
				Method:  method.POST,
				Path:    "/submit",
				Version: "HTTP/1.1",
				Body:    body,
				Headers: kv.New().
					Set("Content-Type", "text/plain").
					Set("Content-Length", strconv.Itoa(len(body))),
			}, request)
		}
	})

	t.Run("random headers", func(t *testing.T) {
		headers := genHeaders(20)
		parser, request := getParser(cfg)
		state, _, err := parser.Parse(generateRequest("/", headers, ""))
		require.NoError(t, err)
		require.Equal(t, Completed, state)

		for _, header := range headers {
			key, value, _ := strings.Cut(header, ": ")
			require.Equal(t, value, request.Headers.Value(key))
		}
	})

	t.Run("absolute path", func(t *testing.T) {
		raw := "GET http://www.w3.org/pub/WWW/TheProject.html HTTP/1.1\r\n\r\n"
		parser, request := getParser(cfg)
		state, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "http://www.w3.org/pub/WWW/TheProject.html", request.Path)
	})

	t.Run("extra bytes after body", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nHelloGET / HTTP/1.1\r\n\r\n"
		parser, request := getParser(cfg)
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "Hello", string(request.Body))
		require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(extra))

		state, extra, err = parser.Parse([]byte("more"))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "more", string(extra))
	})

	t.Run("extra bytes without body", func(t *testing.T) {
		parser, _ := getParser(cfg)
		state, extra, err := parser.Parse([]byte("GET / HTTP/1.1\r\n\r\ngarbage"))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "garbage", string(extra))
	})

	t.Run("transfer encoding is not decoded", func(t *testing.T) {
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nHello\r\n0\r\n\r\n"
		parser, request := getParser(cfg)
		state, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Empty(t, request.Body)
		require.Equal(t, "5\r\nHello\r\n0\r\n\r\n", string(extra))
	})

	t.Run("pending", func(t *testing.T) {
		parser, _ := getParser(cfg)
		state, extra, err := parser.Parse([]byte("GET / HTTP/1.1\r\nHost: localhost\r\n"))
		require.NoError(t, err)
		require.Equal(t, Pending, state)
		require.Empty(t, extra)

		state, _, err = parser.Parse(nil)
		require.NoError(t, err)
		require.Equal(t, Pending, state)
	})

	t.Run("body shorter than declared", func(t *testing.T) {
		parser, request := getParser(cfg)
		state, _, err := parser.Parse([]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nHello"))
		require.NoError(t, err)
		require.Equal(t, Pending, state)
		require.Empty(t, request.Body)
	})

	t.Run("header section exactly at the limit", func(t *testing.T) {
		cfg := config.Default()
		raw := "GET / HTTP/1.1\r\nHello: World!\r\n\r\n"
		cfg.Headers.MaxSize = len(raw)

		parser, _ := getParser(cfg)
		state, _, err := feedPartially(parser, []byte(raw), 3)
		require.NoError(t, err)
		require.Equal(t, Completed, state)
	})

	t.Run("leading empty line is ignored", func(t *testing.T) {
		raw := "\r\nGET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"

		for i := 1; i <= len(raw); i++ {
			parser, request := getParser(cfg)
			state, _, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.Equal(t, Completed, state, i)

			compareRequests(t, wantedRequest{
				Method:  method.GET,
				Path:    "/hello",
				Version: "HTTP/1.1",
				Headers: kv.New().Set("Host", "localhost"),
			}, request)
		}
	})

	t.Run("body grows as data arrives", func(t *testing.T) {
		maxSize := int(cfg.Body.MaxSize)
		parser, request := getParser(cfg)
		head := "POST / HTTP/1.1\r\nContent-Length: " + strconv.Itoa(maxSize) + "\r\n\r\n"

		state, _, err := parser.Parse([]byte(head + "abc"))
		require.NoError(t, err)
		require.Equal(t, Pending, state)
		require.Len(t, parser.body, 3)
		require.LessOrEqual(t, cap(parser.body), cfg.NET.ReadBufferSize)

		state, extra, err := parser.Parse([]byte(strings.Repeat("a", maxSize-3) + "extra"))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "extra", string(extra))
		require.Len(t, request.Body, maxSize)
		require.Equal(t, "abc", string(request.Body[:3]))
	})
}

func TestParserErrors(t *testing.T) {
	cfg := config.Default()

	for _, tc := range []struct {
		Name string
		Raw  string
		Err  error
	}{
		{"missing version", "GET /\r\n\r\n", status.ErrMalformedRequestLine},
		{"too many tokens", "GET / HTTP/1.1 extra\r\n\r\n", status.ErrMalformedRequestLine},
		{"empty request line", "\r\n\r\n", status.ErrMalformedRequestLine},
		{"empty path", "GET ?a=b HTTP/1.1\r\n\r\n", status.ErrMalformedRequestLine},
		{"malformed version", "GET / HTTP/1.1.1\r\n\r\n", status.ErrMalformedRequestLine},
		{"not a version", "GET / FTP/1.1\r\n\r\n", status.ErrMalformedRequestLine},
		{"unsupported version", "GET / HTTP/2.0\r\n\r\n", status.ErrUnsupportedVersion},
		{"unknown method", "BREW / HTTP/1.1\r\n\r\n", status.ErrUnsupportedMethod},
		{"lowercase method", "get / HTTP/1.1\r\n\r\n", status.ErrUnsupportedMethod},
		{"bad query", "GET /?a=%zz HTTP/1.1\r\n\r\n", status.ErrBadQuery},
		{"header without colon", "GET / HTTP/1.1\r\nHello World\r\n\r\n", status.ErrMalformedHeader},
		{"space before colon", "GET / HTTP/1.1\r\nHello : World\r\n\r\n", status.ErrMalformedHeader},
		{"empty header name", "GET / HTTP/1.1\r\n: World\r\n\r\n", status.ErrMalformedHeader},
		{"nul in value", "GET / HTTP/1.1\r\nHello: Wor\x00ld\r\n\r\n", status.ErrMalformedHeader},
		{"content length letters", "GET / HTTP/1.1\r\nContent-Length: abc\r\n\r\n", status.ErrInvalidContentLength},
		{"content length negative", "GET / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", status.ErrInvalidContentLength},
		{"content length empty", "GET / HTTP/1.1\r\nContent-Length:\r\n\r\n", status.ErrInvalidContentLength},
		{"content length overflow", "GET / HTTP/1.1\r\nContent-Length: 99999999999999999999999\r\n\r\n", status.ErrInvalidContentLength},
		{
			"conflicting content lengths",
			"POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nHello!",
			status.ErrInvalidContentLength,
		},
		{"body too large", "POST / HTTP/1.1\r\nContent-Length: 10485761\r\n\r\n", status.ErrBodyTooLarge},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			parser, _ := getParser(cfg)
			state, extra, err := parser.Parse([]byte(tc.Raw))
			require.Equal(t, Error, state)
			require.ErrorIs(t, err, tc.Err)
			require.Empty(t, extra)

			var httpErr status.HTTPError
			require.ErrorAs(t, err, &httpErr)

			// the error sticks
			state, _, err = parser.Parse([]byte("GET / HTTP/1.1\r\n\r\n"))
			require.Equal(t, Error, state)
			require.ErrorIs(t, err, tc.Err)
		})
	}

	t.Run("repeated equal content lengths", func(t *testing.T) {
		parser, request := getParser(cfg)
		raw := "POST / HTTP/1.1\r\nContent-Length: 5\r\ncontent-length: 5\r\n\r\nHello"
		state, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
		require.Equal(t, "Hello", string(request.Body))
	})

	t.Run("header section too large", func(t *testing.T) {
		parser, _ := getParser(cfg)
		raw := "GET / HTTP/1.1\r\nX-Long: " + strings.Repeat("a", cfg.Headers.MaxSize) + "\r\n\r\n"
		state, _, err := feedPartially(parser, []byte(raw), 1024)
		require.Equal(t, Error, state)
		require.ErrorIs(t, err, status.ErrHeaderTooLarge)
	})

	t.Run("header section one byte over the limit", func(t *testing.T) {
		cfg := config.Default()
		raw := "GET / HTTP/1.1\r\nHello: World!\r\n\r\n"
		cfg.Headers.MaxSize = len(raw) - 1

		parser, _ := getParser(cfg)
		state, _, err := parser.Parse([]byte(raw))
		require.Equal(t, Error, state)
		require.ErrorIs(t, err, status.ErrHeaderTooLarge)
	})

	t.Run("too many headers", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.MaxCount = 5

		parser, _ := getParser(cfg)
		state, _, err := parser.Parse(generateRequest("/", genHeaders(5), ""))
		require.Equal(t, Error, state)
		require.ErrorIs(t, err, status.ErrHeaderTooLarge)
	})

	t.Run("headers at the count limit", func(t *testing.T) {
		cfg := config.Default()
		cfg.Headers.MaxCount = 6

		parser, _ := getParser(cfg)
		// generateRequest appends Content-Length by itself
		state, _, err := parser.Parse(generateRequest("/", genHeaders(5), ""))
		require.NoError(t, err)
		require.Equal(t, Completed, state)
	})
}

func TestState(t *testing.T) {
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "completed", Completed.String())
	require.Equal(t, "error", Error.String())
	require.Equal(t, "unknown", State(42).String())
}
