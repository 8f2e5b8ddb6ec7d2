package webserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// Response is built incrementally and serialized once.
type Response struct {
	Status  int
	Content site.Content
	// MaxAge is emitted as Cache-Control: max-age.
	MaxAge int
	// Close asks for the connection to be closed after this response.
	Close bool

	headers [][2]string
	invalid error
}

// ErrInvalidHeader reports a header name or value that would break the
// header block framing.
var ErrInvalidHeader = errors.New("webserver: invalid header")

// NewResponse creates a response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status}
}

// AddHeader registers a header instruction. Instructions are emitted in
// the order added, after Connection and before Cache-Control. A name or
// value holding CR, LF or NUL is not registered and makes Err non-nil.
func (r *Response) AddHeader(name, value string) *Response {
	if name == "" || strings.ContainsAny(name, ctlChars+" :") || strings.ContainsAny(value, ctlChars) {
		if r.invalid == nil {
			r.invalid = fmt.Errorf("%w: %s: %q", ErrInvalidHeader, name, value)
		}
		return r
	}
	r.headers = append(r.headers, [2]string{name, value})
	return r
}

const ctlChars = "\r\n\x00"

// Err returns the first rejected header instruction, or a content type
// that cannot be emitted.
func (r *Response) Err() error {
	if r.invalid != nil {
		return r.invalid
	}
	if strings.ContainsAny(r.Content.MIME, ctlChars) {
		return fmt.Errorf("%w: Content-Type: %q", ErrInvalidHeader, r.Content.MIME)
	}
	return nil
}

// Header returns the first registered value of name.
func (r *Response) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if h[0] == name {
			return h[1], true
		}
	}
	return "", false
}

// MustClose reports whether the connection ends after this response. An
// unsized stream can only be delimited by closing.
func (r *Response) MustClose() bool {
	return r.Close || r.unsized()
}

func (r *Response) unsized() bool {
	return bodyAllowed(r.Status) && r.Content.Streamed() && r.Content.Size() == site.UnknownSize
}

// Write serializes the response to w. With head set, the header block is
// identical but no body bytes follow. w is not flushed.
func (r *Response) Write(w *bufio.Writer, head bool) error {
	defer r.Content.Close()

	if err := r.Err(); err != nil {
		return err
	}
	text := StatusText(r.Status)
	if text == "" {
		return fmt.Errorf("webserver: unsupported status %d", r.Status)
	}

	w.WriteString("HTTP/1.1 ")
	w.WriteString(strconv.Itoa(r.Status))
	w.WriteByte(' ')
	w.WriteString(text)
	w.WriteString("\r\n")

	if r.MustClose() {
		writeHeader(w, "Connection", "close")
	} else {
		writeHeader(w, "Connection", "keep-alive")
	}
	for _, h := range r.headers {
		writeHeader(w, h[0], h[1])
	}
	writeHeader(w, "Cache-Control", "max-age="+strconv.Itoa(max(r.MaxAge, 0)))

	body := bodyAllowed(r.Status)
	if body {
		if !r.Content.Empty() {
			writeHeader(w, "Content-Type", r.Content.MIME)
		}
		if !r.unsized() {
			writeHeader(w, "Content-Length", strconv.FormatInt(r.size(), 10))
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}

	if head || !body || r.Content.Empty() {
		return nil
	}
	return r.writeBody(w)
}

func (r *Response) size() int64 {
	if r.Content.Empty() {
		return 0
	}
	return r.Content.Size()
}

func (r *Response) writeBody(w *bufio.Writer) error {
	if !r.Content.Streamed() {
		_, err := w.Write(r.Content.Data())
		return err
	}
	if r.unsized() {
		_, err := io.Copy(w, r.Content.Reader())
		return err
	}
	want := r.Content.Size()
	n, err := io.Copy(w, io.LimitReader(r.Content.Reader(), want))
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("webserver: stream ended after %d of %d bytes", n, want)
	}
	return nil
}

func writeHeader(w *bufio.Writer, name, value string) {
	w.WriteString(name)
	w.WriteString(": ")
	w.WriteString(value)
	w.WriteString("\r\n")
}
