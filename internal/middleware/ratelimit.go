package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/pkg/httpcontext"
)

const (
	maxTrackedClients = 10000
	clientIdleTimeout = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP. At most maxClients
// buckets are tracked; the least recently seen one is evicted beyond that.
type IPRateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	r          rate.Limit
	b          int
	maxClients int
	proxies    *httpcontext.TrustedProxies
	now        func() time.Time
}

// NewIPRateLimiter allows perMinute events per client with the given burst.
func NewIPRateLimiter(perMinute, burst int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		clients:    make(map[string]*clientLimiter),
		r:          rate.Limit(float64(perMinute) / 60),
		b:          burst,
		maxClients: maxTrackedClients,
		now:        time.Now,
	}
}

// WithTrustedProxies keys requests arriving through proxies on the forwarded
// client address. Without it only the socket peer counts.
func (l *IPRateLimiter) WithTrustedProxies(proxies *httpcontext.TrustedProxies) *IPRateLimiter {
	l.proxies = proxies
	return l
}

// Allow consumes one token for ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	client, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= l.maxClients {
			l.sweep(now)
		}
		if len(l.clients) >= l.maxClients {
			l.evictOldest()
		}
		client = &clientLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// sweep drops idle clients. Callers hold mu.
func (l *IPRateLimiter) sweep(now time.Time) {
	for ip, client := range l.clients {
		if now.Sub(client.lastSeen) > clientIdleTimeout {
			delete(l.clients, ip)
		}
	}
}

// evictOldest drops the least recently seen client. Callers hold mu.
func (l *IPRateLimiter) evictOldest() {
	var (
		oldestIP string
		oldest   time.Time
	)
	for ip, client := range l.clients {
		if oldestIP == "" || client.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, client.lastSeen
		}
	}
	delete(l.clients, oldestIP)
}

// Middleware rejects requests over the limit with 429.
func (l *IPRateLimiter) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !l.Allow(l.proxies.ClientIP(ctx)) {
			ctx.Response.Header.Set("Retry-After", "60")
			writeEnvelope(ctx, http.StatusTooManyRequests, transport.NewError("RATE_LIMITED", "too many requests", nil))
			return
		}
		next(ctx)
	}
}
