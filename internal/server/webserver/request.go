package webserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// Protocol errors. None of them is answered; the connection is closed.
var (
	// ErrConnectionClosed means the stream ended before a full header block.
	ErrConnectionClosed = errors.New("webserver: connection closed")
	// ErrMalformedRequest means the request could not be parsed.
	ErrMalformedRequest = errors.New("webserver: malformed request")
	// ErrLimitExceeded means a configured size limit was exceeded.
	ErrLimitExceeded = errors.New("webserver: limit exceeded")
)

// Limits bound what a client may send.
type Limits struct {
	MaxHeaderLine  int
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

// DefaultLimits returns conservative limits.
func DefaultLimits() Limits {
	return Limits{
		MaxHeaderLine:  8 << 10,
		MaxHeaderBytes: 64 << 10,
		MaxBodyBytes:   8 << 20,
	}
}

// ReadRequest parses one request from r. The body, if any, is exactly
// Content-Length bytes; nothing past it is consumed.
func ReadRequest(r *bufio.Reader, lim Limits) (*site.Request, error) {
	total := 0
	next := func() (string, error) {
		line, n, err := readLine(r, lim.MaxHeaderLine)
		total += n
		if err == nil && lim.MaxHeaderBytes > 0 && total > lim.MaxHeaderBytes {
			return "", fmt.Errorf("%w: header block exceeds %d bytes", ErrLimitExceeded, lim.MaxHeaderBytes)
		}
		return line, err
	}

	line, err := next()
	if err != nil {
		return nil, err
	}
	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	for {
		line, err := next()
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if err := req.setHeader(line); err != nil {
			return nil, err
		}
	}

	if req.ContentLength > 0 {
		if lim.MaxBodyBytes > 0 && req.ContentLength > lim.MaxBodyBytes {
			return nil, fmt.Errorf("%w: body of %d bytes exceeds %d", ErrLimitExceeded, req.ContentLength, lim.MaxBodyBytes)
		}
		req.Body = make([]byte, req.ContentLength)
		if _, err := io.ReadFull(r, req.Body); err != nil {
			return nil, fmt.Errorf("%w: short body: %v", ErrMalformedRequest, err)
		}
	}
	return req.Request, nil
}

// readLine reads up to LF and strips LF and one preceding CR. It returns
// the raw byte count for header accounting.
func readLine(r *bufio.Reader, maxLen int) (string, int, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)
		if maxLen > 0 && len(buf) > maxLen {
			return "", len(buf), fmt.Errorf("%w: line exceeds %d bytes", ErrLimitExceeded, maxLen)
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", len(buf), ErrConnectionClosed
		}
		return "", len(buf), err
	}
	n := len(buf)
	buf = buf[:len(buf)-1]
	if len(buf) > 0 && buf[len(buf)-1] == '\r' {
		buf = buf[:len(buf)-1]
	}
	return string(buf), n, nil
}

type requestBuilder struct {
	*site.Request
}

func parseRequestLine(line string) (requestBuilder, error) {
	fields := strings.Split(line, " ")
	if len(fields) < 2 || len(fields) > 3 || fields[0] == "" || fields[1] == "" {
		return requestBuilder{}, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}
	req := &site.Request{
		Method: fields[0],
		Target: fields[1],
	}
	if len(fields) == 3 {
		req.Proto = fields[2]
	}

	req.Path = req.Target
	if i := strings.LastIndexByte(req.Target, '?'); i >= 0 {
		req.Path = req.Target[:i]
		req.Query = parseQuery(req.Target[i+1:])
	}
	return requestBuilder{req}, nil
}

// parseQuery keeps pairs of the form n=v. Pairs without '=' or shorter than
// three characters are dropped. Values are not percent-decoded.
func parseQuery(raw string) []site.Param {
	var out []site.Param
	for _, pair := range strings.Split(raw, "&") {
		if len(pair) < 3 {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out = append(out, site.Param{Name: name, Value: value})
	}
	return out
}

func (b requestBuilder) setHeader(line string) error {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "host":
		b.Host = value
	case "content-length":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: content-length %q", ErrMalformedRequest, value)
		}
		b.ContentLength = n
	case "content-type":
		b.ContentType = value
	case "authorization":
		b.Authorization = value
	case "if-modified-since":
		if t, err := http.ParseTime(value); err == nil {
			b.IfModifiedSince = t
		}
	case "if-none-match":
		b.IfNoneMatch = value
	case "cookie":
		if b.Cookie != "" {
			b.Cookie += "; " + value
		} else {
			b.Cookie = value
		}
	case "connection":
		for _, tok := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				b.Close = true
			}
		}
	}
	return nil
}
