package site

import "io"

// UnknownSize marks a streamed Content whose length is not known up front.
// Serving it forces the connection to close after the body.
const UnknownSize int64 = -1

// Common MIME types.
const (
	MIMEPlain = "text/plain; charset=utf-8"
	MIMEHTML  = "text/html; charset=utf-8"
	MIMEJSON  = "application/json"
	MIMEOctet = "application/octet-stream"
)

// Content is a response body. It is either fully loaded bytes or a stream.
// The zero value is an empty body.
type Content struct {
	MIME   string
	data   []byte
	stream io.Reader
	size   int64
}

// Bytes returns loaded content.
func Bytes(data []byte, mime string) Content {
	if mime == "" {
		mime = MIMEOctet
	}
	return Content{MIME: mime, data: data, size: int64(len(data))}
}

// Text returns loaded text/plain content.
func Text(s string) Content {
	return Bytes([]byte(s), MIMEPlain)
}

// HTML returns loaded text/html content.
func HTML(s string) Content {
	return Bytes([]byte(s), MIMEHTML)
}

// Stream returns streamed content read from r. size is the exact number of
// bytes r yields, or UnknownSize. If r is an io.Closer it is closed once
// the response has been written.
func Stream(r io.Reader, size int64, mime string) Content {
	if mime == "" {
		mime = MIMEOctet
	}
	if size < 0 {
		size = UnknownSize
	}
	return Content{MIME: mime, stream: r, size: size}
}

// Streamed reports whether the body is delivered from a reader.
func (c Content) Streamed() bool { return c.stream != nil }

// Size returns the body length, or UnknownSize for an unsized stream.
func (c Content) Size() int64 { return c.size }

// Data returns the loaded bytes. It is nil for streamed content.
func (c Content) Data() []byte { return c.data }

// Reader returns the stream. It is nil for loaded content.
func (c Content) Reader() io.Reader { return c.stream }

// Empty reports whether there is no body to send.
func (c Content) Empty() bool {
	return c.stream == nil && len(c.data) == 0
}

// Close releases the underlying stream, if any.
func (c Content) Close() error {
	if cl, ok := c.stream.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
