package script

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/dop251/goja"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// requestValue exposes the request to scripts as a plain object.
func requestValue(vm *goja.Runtime, req *site.Request) goja.Value {
	query := make(map[string]any, len(req.Query))
	pairs := make([]any, 0, len(req.Query))
	for _, p := range req.Query {
		if _, seen := query[p.Name]; !seen {
			query[p.Name] = p.Value
		}
		pairs = append(pairs, []any{p.Name, p.Value})
	}
	cookies := make(map[string]any)
	for _, c := range req.Cookies() {
		if _, seen := cookies[c.Name]; !seen {
			cookies[c.Name] = c.Value
		}
	}
	return vm.ToValue(map[string]any{
		"method":      req.Method,
		"target":      req.Target,
		"path":        req.Path,
		"query":       query,
		"params":      pairs,
		"host":        req.Host,
		"subdomain":   req.Subdomain(),
		"contentType": req.ContentType,
		"cookies":     cookies,
		"body":        string(req.Body),
		"remoteAddr":  req.RemoteAddr,
		"receivedAt":  req.ReceivedAt.UnixMilli(),
	})
}

func credentialsValue(vm *goja.Runtime, creds site.Credentials) goja.Value {
	if !creds.Present {
		return goja.Null()
	}
	return vm.ToValue(map[string]any{
		"username": creds.Username,
		"password": creds.Password,
	})
}

// toReply accepts a string (served as HTML), null for an empty body, or an
// object {body, type, redirect, cookies, maxAge}.
func toReply(v goja.Value) (*site.Reply, error) {
	if !present(v) {
		return &site.Reply{}, nil
	}
	switch x := v.Export().(type) {
	case string:
		return &site.Reply{Content: site.HTML(x)}, nil
	case []byte:
		return &site.Reply{Content: site.Bytes(x, site.MIMEOctet)}, nil
	case map[string]any:
		return replyFromObject(x)
	default:
		return &site.Reply{Content: site.Text(v.String())}, nil
	}
}

func replyFromObject(obj map[string]any) (*site.Reply, error) {
	reply := &site.Reply{}

	mime := site.MIMEHTML
	if t, ok := obj["type"].(string); ok && t != "" {
		mime = t
	}
	switch body := obj["body"].(type) {
	case nil:
	case string:
		reply.Content = site.Bytes([]byte(body), mime)
	case []byte:
		reply.Content = site.Bytes(body, mime)
	case goja.ArrayBuffer:
		reply.Content = site.Bytes(body.Bytes(), mime)
	default:
		return nil, fmt.Errorf("reply body: unsupported type %T", body)
	}

	if r, ok := obj["redirect"].(string); ok {
		reply.Redirect = r
	}
	if n, ok := toInt(obj["maxAge"]); ok {
		reply.MaxAge = n
	}

	if raw, ok := obj["cookies"].([]any); ok {
		for i, item := range raw {
			c, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("reply cookie %d: expected an object", i)
			}
			name, _ := c["name"].(string)
			if name == "" {
				return nil, fmt.Errorf("reply cookie %d: name is required", i)
			}
			cookie := site.Cookie{Name: name}
			cookie.Value, _ = c["value"].(string)
			cookie.Domain, _ = c["domain"].(string)
			cookie.Path, _ = c["path"].(string)
			reply.Cookies = append(reply.Cookies, cookie)
		}
	}
	return reply, nil
}

// toAuthorization accepts a boolean or {ok, realm}.
func toAuthorization(v goja.Value, realm string) (bool, string) {
	if !present(v) {
		return false, realm
	}
	if obj, isObj := v.Export().(map[string]any); isObj {
		ok, _ := obj["ok"].(bool)
		if r, _ := obj["realm"].(string); r != "" {
			realm = r
		}
		return ok, realm
	}
	return v.ToBoolean(), realm
}

// toCacheMetadata accepts {etag, maxAge, lastModified}. lastModified may be
// a Date, milliseconds since the epoch, or an HTTP or RFC 3339 date string.
func toCacheMetadata(v goja.Value) (site.CacheMetadata, error) {
	var meta site.CacheMetadata
	if !present(v) {
		return meta, nil
	}
	obj, ok := v.Export().(map[string]any)
	if !ok {
		return meta, fmt.Errorf("cache metadata: expected an object")
	}
	meta.ETag, _ = obj["etag"].(string)
	if n, ok := toInt(obj["maxAge"]); ok {
		meta.MaxAge = n
	}
	switch lm := obj["lastModified"].(type) {
	case nil:
	case time.Time:
		meta.LastModified = lm
	case string:
		t, err := http.ParseTime(lm)
		if err != nil {
			if t, err = time.Parse(time.RFC3339, lm); err != nil {
				return meta, fmt.Errorf("cache metadata: lastModified %q: unrecognized date", lm)
			}
		}
		meta.LastModified = t
	default:
		ms, ok := toInt(lm)
		if !ok {
			return meta, fmt.Errorf("cache metadata: lastModified: unsupported type %T", lm)
		}
		meta.LastModified = time.UnixMilli(int64(ms))
	}
	return meta, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
