package site

import (
	"strings"
	"time"
)

// Reply is what a site returns for Get or Post.
type Reply struct {
	Content Content
	// Redirect, when set, turns the response into a 307 with this Location.
	Redirect string
	Cookies  []Cookie
	// MaxAge overrides the cache metadata max-age when positive.
	MaxAge int
}

// Cookie is a Set-Cookie instruction.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// String renders the Set-Cookie header value.
func (c Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	return b.String()
}

// CacheMetadata carries the validators and freshness of a resource.
// Zero fields mean "not provided".
type CacheMetadata struct {
	LastModified time.Time
	ETag         string
	MaxAge       int
}
