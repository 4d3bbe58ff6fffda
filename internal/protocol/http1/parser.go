package http1

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/indigo-web/schnell/config"
	"github.com/indigo-web/schnell/http"
	"github.com/indigo-web/schnell/http/method"
	"github.com/indigo-web/schnell/http/query"
	"github.com/indigo-web/schnell/http/status"
	"github.com/indigo-web/schnell/internal/buffer"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/net/http/httpguts"
)

// State is the outcome of a single Parse call.
type State uint8

const (
	// Pending means more data is needed.
	Pending State = iota
	// Completed means the request is fully parsed, including its body.
	Completed
	// Error means the request is malformed. The returned error is always status.HTTPError.
	Error
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type parserState uint8

const (
	eHeaders parserState = iota
	eBody
	eDone
	eFailed
)

var (
	crlf   = []byte("\r\n")
	crlfx2 = []byte("\r\n\r\n")
)

// Parser is an incremental HTTP/1.x request parser. It's fed with arbitrary chunks of the
// byte stream and never touches the network by itself. First the header section is
// accumulated until the empty line, then it is parsed at once, then the body is collected
// according to Content-Length.
//
// Header keys and values of the parsed request point into the parser's own memory, so the
// parser must outlive the request.
type Parser struct {
	state         parserState
	err           error
	cfg           *config.Config
	request       *http.Request
	head          buffer.Buffer
	contentLength uint64
	body          []byte
}

func NewParser(cfg *config.Config, request *http.Request) *Parser {
	return &Parser{
		state:   eHeaders,
		cfg:     cfg,
		request: request,
		head:    buffer.New(cfg.Headers.Prealloc, cfg.Headers.MaxSize),
	}
}

// Parse consumes the next chunk of the stream. Once the request is Completed, bytes that
// don't belong to it are returned as extra. After an Error, every consecutive call returns
// the same error.
func (p *Parser) Parse(data []byte) (state State, extra []byte, err error) {
	switch p.state {
	case eHeaders:
		goto headers
	case eBody:
		goto body
	case eDone:
		return Completed, data, nil
	case eFailed:
		return Error, nil, p.err
	default:
		panic("unreachable code")
	}

headers:
	{
		prev := p.head.Len()
		// the terminator may be split across chunks, so step back a bit
		scanFrom := max(0, prev-len(crlfx2)+1)
		n := p.head.Fill(data)
		raw := p.head.Bytes()

		end := bytes.Index(raw[scanFrom:], crlfx2)
		if end == -1 {
			if n < len(data) || p.head.Full() {
				return p.fail(status.ErrHeaderTooLarge)
			}

			return Pending, nil, nil
		}

		end += scanFrom + len(crlfx2)
		data = data[end-prev:]

		if err = p.parseHead(raw[:end-len(crlfx2)]); err != nil {
			return p.fail(err)
		}

		if p.contentLength == 0 {
			p.state = eDone
			return Completed, data, nil
		}

		// the declared length is just a promise, so the body grows as the data arrives
		p.body = make([]byte, 0, min(p.contentLength, uint64(p.cfg.NET.ReadBufferSize)))
		p.state = eBody
	}

body:
	need := int(p.contentLength) - len(p.body)
	if len(data) < need {
		p.body = append(p.body, data...)
		return Pending, nil, nil
	}

	p.body = append(p.body, data[:need]...)
	p.request.Body = p.body
	p.state = eDone

	return Completed, data[need:], nil
}

func (p *Parser) fail(err error) (State, []byte, error) {
	p.state = eFailed
	p.err = err

	return Error, nil, err
}

func (p *Parser) parseHead(head []byte) error {
	// RFC 9112, 2.2: at least one empty line preceding the request line should be ignored
	head = bytes.TrimPrefix(head, crlf)
	requestLine, fields, _ := bytes.Cut(head, crlf)
	if err := p.parseRequestLine(uf.B2S(requestLine)); err != nil {
		return err
	}

	var (
		count   int
		request = p.request
	)

	for len(fields) > 0 {
		var line []byte
		line, fields, _ = bytes.Cut(fields, crlf)

		if count++; count > p.cfg.Headers.MaxCount {
			return status.ErrHeaderTooLarge
		}

		key, value, found := strings.Cut(uf.B2S(line), ":")
		if !found || !httpguts.ValidHeaderFieldName(key) {
			return status.ErrMalformedHeader
		}

		value = strings.Trim(value, " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return status.ErrMalformedHeader
		}

		if strcomp.EqualFold(key, "content-length") {
			if err := p.setContentLength(value); err != nil {
				return err
			}
		}

		request.Headers.Set(key, value)
	}

	return nil
}

func (p *Parser) parseRequestLine(line string) error {
	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return status.ErrMalformedRequestLine
	}

	m := method.Parse(tokens[0])
	if m == method.Unknown {
		return status.ErrUnsupportedMethod
	}

	path, rawQuery, _ := strings.Cut(tokens[1], "?")
	if len(path) == 0 {
		return status.ErrMalformedRequestLine
	}

	if err := query.Parse(rawQuery, p.request.Query); err != nil {
		return err
	}

	version := tokens[2]
	if !isVersion(version) {
		return status.ErrMalformedRequestLine
	}

	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return status.ErrUnsupportedVersion
	}

	p.request.Method = m
	p.request.Path = path
	p.request.Version = version

	return nil
}

func (p *Parser) setContentLength(value string) error {
	if len(value) == 0 || !isDigits(value) {
		return status.ErrInvalidContentLength
	}

	length, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return status.ErrInvalidContentLength
	}

	if p.request.Headers.Has("content-length") && length != p.contentLength {
		return status.ErrInvalidContentLength
	}

	if length > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	p.contentLength = length
	return nil
}

// isVersion checks whether the token looks like HTTP/<digit>.<digit>
func isVersion(token string) bool {
	const prefix = "HTTP/"

	return len(token) == len(prefix)+3 &&
		strings.HasPrefix(token, prefix) &&
		isDigit(token[len(prefix)]) &&
		token[len(prefix)+1] == '.' &&
		isDigit(token[len(prefix)+2])
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}

	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
