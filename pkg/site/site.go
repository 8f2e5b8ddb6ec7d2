package site

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by a site that does not support an operation,
// typically Post. The server answers 501 and keeps the connection open.
var ErrNotImplemented = errors.New("site: operation not implemented")

// Site is the capability set every hosted site implements.
type Site interface {
	// Get produces the content for a GET or HEAD request.
	Get(ctx context.Context, req *Request) (*Reply, error)

	// Post handles a POST request with its body.
	Post(ctx context.Context, req *Request, body []byte) (*Reply, error)

	// IsAuthorized reports whether creds may access req. When it returns
	// false, realm names the authentication scope presented to the client.
	IsAuthorized(ctx context.Context, req *Request, creds Credentials) (ok bool, realm string, err error)

	// CacheMetadata returns the validators and freshness for req.
	CacheMetadata(ctx context.Context, req *Request) (CacheMetadata, error)
}

// Declaration binds a Site to its routing claims.
type Declaration struct {
	// Name identifies the site in logs and diagnostics.
	Name string
	// Root claims requests that match no subdomain.
	Root bool
	// Subdomains lists the subdomain labels this site serves.
	Subdomains []string
	// Site is the implementation.
	Site Site
}

// Base provides permissive defaults for sites that only care about Get.
// Embed it and override what you need.
type Base struct{}

// Post reports ErrNotImplemented.
func (Base) Post(context.Context, *Request, []byte) (*Reply, error) {
	return nil, ErrNotImplemented
}

// IsAuthorized allows every request.
func (Base) IsAuthorized(context.Context, *Request, Credentials) (bool, string, error) {
	return true, "", nil
}

// CacheMetadata returns no validators and a zero max-age.
func (Base) CacheMetadata(context.Context, *Request) (CacheMetadata, error) {
	return CacheMetadata{}, nil
}
