package webserver

import (
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/sabertooth-go/pkg/cmap"
)

// limiter is a per-client-IP token bucket.
type limiter struct {
	limit    rate.Limit
	burst    int
	visitors *cmap.Map[string, *visitor]
	now      func() time.Time
}

type visitor struct {
	bucket   *rate.Limiter
	lastSeen atomic.Int64
}

// newLimiter returns nil when perSecond is not positive.
func newLimiter(perSecond float64, burst int) *limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		visitors: cmap.New[string, *visitor](),
		now:      time.Now,
	}
}

func (l *limiter) allow(ip string) bool {
	if l == nil {
		return true
	}
	c, _ := l.visitors.GetOrCreate(ip, func() *visitor {
		return &visitor{bucket: rate.NewLimiter(l.limit, l.burst)}
	})
	now := l.now()
	c.lastSeen.Store(now.UnixNano())
	return c.bucket.AllowN(now, 1)
}

// sweep forgets visitors idle for longer than idle.
func (l *limiter) sweep(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := l.now().Add(-idle).UnixNano()
	return l.visitors.DeleteFunc(func(_ string, c *visitor) bool {
		return c.lastSeen.Load() < cutoff
	})
}

func clientIP(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
