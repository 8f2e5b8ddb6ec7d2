package sitekit

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"time"

	goplugin "github.com/hashicorp/go-plugin"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// Plugin implements goplugin.Plugin for a mandate module.
type Plugin struct {
	Impl *Module
}

// Server returns the RPC server run inside the plugin process.
func (p *Plugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns the host-side view of the module.
func (*Plugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// RPCServer exposes a Module over net/rpc.
type RPCServer struct {
	Impl *Module
}

func (s *RPCServer) site(i int) (site.Site, error) {
	if i < 0 || i >= len(s.Impl.Sites) {
		return nil, fmt.Errorf("sitekit: no site %d", i)
	}
	return s.Impl.Sites[i].Site, nil
}

// Describe returns the declared sites.
func (s *RPCServer) Describe(_ interface{}, resp *DescribeReply) error {
	resp.RefreshInterval = s.Impl.RefreshInterval
	resp.Sites = make([]SiteInfo, len(s.Impl.Sites))
	for i, d := range s.Impl.Sites {
		resp.Sites[i] = SiteInfo{Name: d.Name, Root: d.Root, Subdomains: d.Subdomains}
	}
	return nil
}

func (s *RPCServer) Get(args CallArgs, resp *ReplyWire) error {
	st, err := s.site(args.Site)
	if err != nil {
		return err
	}
	return fillReply(resp)(st.Get(context.Background(), &args.Request))
}

func (s *RPCServer) Post(args CallArgs, resp *ReplyWire) error {
	st, err := s.site(args.Site)
	if err != nil {
		return err
	}
	return fillReply(resp)(st.Post(context.Background(), &args.Request, args.Body))
}

func (s *RPCServer) IsAuthorized(args CallArgs, resp *AuthReply) error {
	st, err := s.site(args.Site)
	if err != nil {
		return err
	}
	ok, realm, err := st.IsAuthorized(context.Background(), &args.Request, args.Creds)
	if err != nil {
		return err
	}
	*resp = AuthReply{OK: ok, Realm: realm}
	return nil
}

func (s *RPCServer) CacheMetadata(args CallArgs, resp *site.CacheMetadata) error {
	st, err := s.site(args.Site)
	if err != nil {
		return err
	}
	md, err := st.CacheMetadata(context.Background(), &args.Request)
	if err != nil {
		return err
	}
	*resp = md
	return nil
}

func fillReply(resp *ReplyWire) func(*site.Reply, error) error {
	return func(r *site.Reply, err error) error {
		if errors.Is(err, site.ErrNotImplemented) {
			*resp = ReplyWire{NotImplemented: true}
			return nil
		}
		if err != nil {
			return err
		}
		w, err := toWire(r)
		if err != nil {
			return fmt.Errorf("sitekit: read content: %w", err)
		}
		*resp = w
		return nil
	}
}

// RPCClient is the host-side stub of a plugin module.
type RPCClient struct {
	client  *rpc.Client
	timeout time.Duration
}

// SetCallTimeout bounds every later call into the plugin. Zero means calls
// are bounded by their context only. Call it before Describe.
func (c *RPCClient) SetCallTimeout(d time.Duration) {
	c.timeout = d
}

// Describe fetches the declaration and returns sites that forward every
// call to the plugin process.
func (c *RPCClient) Describe(ctx context.Context) ([]site.Declaration, DescribeReply, error) {
	var resp DescribeReply
	if err := c.call(ctx, "Plugin.Describe", new(interface{}), &resp); err != nil {
		return nil, resp, err
	}
	decls := make([]site.Declaration, len(resp.Sites))
	for i, info := range resp.Sites {
		decls[i] = site.Declaration{
			Name:       info.Name,
			Root:       info.Root,
			Subdomains: info.Subdomains,
			Site:       &remoteSite{c: c, index: i},
		}
	}
	return decls, resp, nil
}

// call honours ctx and the call timeout; net/rpc itself has no
// cancellation, so an abandoned call completes into its own reply value.
func (c *RPCClient) call(ctx context.Context, method string, args, reply any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	call := c.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return call.Error
	case <-ctx.Done():
		return fmt.Errorf("sitekit: %s: %w", method, ctx.Err())
	}
}

type remoteSite struct {
	c     *RPCClient
	index int
}

func (s *remoteSite) reply(ctx context.Context, method string, args CallArgs) (*site.Reply, error) {
	var resp ReplyWire
	if err := s.c.call(ctx, method, args, &resp); err != nil {
		return nil, err
	}
	if resp.NotImplemented {
		return nil, site.ErrNotImplemented
	}
	return fromWire(resp), nil
}

func (s *remoteSite) Get(ctx context.Context, req *site.Request) (*site.Reply, error) {
	return s.reply(ctx, "Plugin.Get", CallArgs{Site: s.index, Request: *req})
}

func (s *remoteSite) Post(ctx context.Context, req *site.Request, body []byte) (*site.Reply, error) {
	return s.reply(ctx, "Plugin.Post", CallArgs{Site: s.index, Request: *req, Body: body})
}

func (s *remoteSite) IsAuthorized(ctx context.Context, req *site.Request, creds site.Credentials) (bool, string, error) {
	var resp AuthReply
	if err := s.c.call(ctx, "Plugin.IsAuthorized", CallArgs{Site: s.index, Request: *req, Creds: creds}, &resp); err != nil {
		return false, "", err
	}
	return resp.OK, resp.Realm, nil
}

func (s *remoteSite) CacheMetadata(ctx context.Context, req *site.Request) (site.CacheMetadata, error) {
	var resp site.CacheMetadata
	if err := s.c.call(ctx, "Plugin.CacheMetadata", CallArgs{Site: s.index, Request: *req}, &resp); err != nil {
		return site.CacheMetadata{}, err
	}
	return resp, nil
}
