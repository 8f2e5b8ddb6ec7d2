package site

import (
	"encoding/base64"
	"net"
	"strings"
	"time"
)

// Param is a single name/value pair taken from a query string or a
// Cookie header. Order of appearance is preserved.
type Param struct {
	Name  string
	Value string
}

// Request is a parsed HTTP request. It is immutable once handed to a site.
type Request struct {
	Method string
	// Target is the raw request target, path plus query string.
	Target string
	Path   string
	Query  []Param
	Proto  string

	Host            string
	ContentLength   int64
	ContentType     string
	Authorization   string
	IfModifiedSince time.Time
	IfNoneMatch     string
	Cookie          string
	// Close is set when the client asked for the connection to be closed.
	Close bool

	Body []byte

	RemoteAddr string
	ReceivedAt time.Time
}

// QueryValue returns the first query value named name.
func (r *Request) QueryValue(name string) (string, bool) {
	for _, p := range r.Query {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Subdomain returns the routing label of the request host.
func (r *Request) Subdomain() string {
	return SubdomainOf(r.Host)
}

// Cookies splits the Cookie header into its pairs.
func (r *Request) Cookies() []Param {
	if r.Cookie == "" {
		return nil
	}
	var out []Param
	for _, part := range strings.Split(r.Cookie, ";") {
		part = strings.TrimSpace(part)
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, Param{Name: name, Value: value})
	}
	return out
}

// CookieValue returns the value of the first cookie named name.
func (r *Request) CookieValue(name string) (string, bool) {
	for _, c := range r.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Credentials returns the Basic credentials carried by the Authorization
// header. A missing or unparsable header yields Credentials{}.
func (r *Request) Credentials() Credentials {
	scheme, payload, ok := strings.Cut(strings.TrimSpace(r.Authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return Credentials{}
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return Credentials{}
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Credentials{}
	}
	return Credentials{Username: user, Password: pass, Present: true}
}

// Credentials are Basic authentication credentials.
type Credentials struct {
	Username string
	Password string
	// Present is false when the client sent no usable credentials.
	Present bool
}

// SubdomainOf extracts the routing label from a Host header value.
//
// The port is dropped and the host lowercased. IP literals and hosts with
// fewer than three labels have no subdomain. Otherwise the label directly
// left of the last two is returned, so "blog.example.com" and
// "cdn.blog.example.com" both yield "blog".
func SubdomainOf(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.Trim(host, "[]"), ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	return labels[len(labels)-3]
}
