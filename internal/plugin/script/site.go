package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// jsSite adapts script callbacks to site.Site.
type jsSite struct {
	m     *module
	name  string
	realm string

	get       goja.Callable
	post      goja.Callable
	authorize goja.Callable
	cache     goja.Callable
}

var _ site.Site = (*jsSite)(nil)

func (s *jsSite) Get(ctx context.Context, req *site.Request) (*site.Reply, error) {
	var reply *site.Reply
	err := s.m.invoke(ctx, func(vm *goja.Runtime) error {
		v, err := s.get(goja.Undefined(), requestValue(vm, req))
		if err != nil {
			return s.failed("get", err)
		}
		reply, err = toReply(v)
		return err
	})
	return reply, err
}

func (s *jsSite) Post(ctx context.Context, req *site.Request, body []byte) (*site.Reply, error) {
	if s.post == nil {
		return nil, site.ErrNotImplemented
	}
	var reply *site.Reply
	err := s.m.invoke(ctx, func(vm *goja.Runtime) error {
		v, err := s.post(goja.Undefined(), requestValue(vm, req), vm.ToValue(string(body)))
		if err != nil {
			return s.failed("post", err)
		}
		reply, err = toReply(v)
		return err
	})
	return reply, err
}

func (s *jsSite) IsAuthorized(ctx context.Context, req *site.Request, creds site.Credentials) (bool, string, error) {
	if s.authorize == nil {
		return true, "", nil
	}
	var (
		ok    bool
		realm string
	)
	err := s.m.invoke(ctx, func(vm *goja.Runtime) error {
		v, err := s.authorize(goja.Undefined(), requestValue(vm, req), credentialsValue(vm, creds))
		if err != nil {
			return s.failed("authorize", err)
		}
		ok, realm = toAuthorization(v, s.realm)
		return nil
	})
	return ok, realm, err
}

func (s *jsSite) CacheMetadata(ctx context.Context, req *site.Request) (site.CacheMetadata, error) {
	if s.cache == nil {
		return site.CacheMetadata{}, nil
	}
	var meta site.CacheMetadata
	err := s.m.invoke(ctx, func(vm *goja.Runtime) error {
		v, err := s.cache(goja.Undefined(), requestValue(vm, req))
		if err != nil {
			return s.failed("cache", err)
		}
		meta, err = toCacheMetadata(v)
		return err
	})
	return meta, err
}

func (s *jsSite) failed(fn string, err error) error {
	return fmt.Errorf("script %s/%s.%s: %s", s.m.name, s.name, fn, describe(err))
}
