package sitekit

import (
	"io"
	"time"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// SiteInfo describes one declared site across the process boundary.
type SiteInfo struct {
	Name       string
	Root       bool
	Subdomains []string
}

// DescribeReply is the module's declaration.
type DescribeReply struct {
	Sites           []SiteInfo
	RefreshInterval time.Duration
}

// CallArgs addresses one site with one request.
type CallArgs struct {
	Site    int
	Request site.Request
	Body    []byte
	Creds   site.Credentials
}

// ReplyWire is site.Reply with its content materialized.
type ReplyWire struct {
	Body           []byte
	MIME           string
	Redirect       string
	Cookies        []site.Cookie
	MaxAge         int
	NotImplemented bool
}

// AuthReply carries IsAuthorized results.
type AuthReply struct {
	OK    bool
	Realm string
}

func toWire(r *site.Reply) (ReplyWire, error) {
	if r == nil {
		return ReplyWire{}, nil
	}
	w := ReplyWire{
		MIME:     r.Content.MIME,
		Redirect: r.Redirect,
		Cookies:  r.Cookies,
		MaxAge:   r.MaxAge,
	}
	if r.Content.Streamed() {
		defer r.Content.Close()
		data, err := io.ReadAll(r.Content.Reader())
		if err != nil {
			return ReplyWire{}, err
		}
		w.Body = data
	} else {
		w.Body = r.Content.Data()
	}
	return w, nil
}

func fromWire(w ReplyWire) *site.Reply {
	r := &site.Reply{
		Redirect: w.Redirect,
		Cookies:  w.Cookies,
		MaxAge:   w.MaxAge,
	}
	if len(w.Body) > 0 || w.MIME != "" {
		r.Content = site.Bytes(w.Body, w.MIME)
	}
	return r
}
