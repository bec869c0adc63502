package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/carelink/backend/domain"
	appLogger "github.com/carelink/backend/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyPrincipal  Key = "principal"
	KeyOperation  Key = "operation"
	KeySessionID  Key = "session_id"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
	proxies *TrustedProxies
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// WithTrustedProxies makes the adapter honour X-Forwarded-For from proxies.
func (a *Adapter) WithTrustedProxies(proxies *TrustedProxies) *Adapter {
	a.proxies = proxies
	return a
}

// ClientIP resolves the caller address using the adapter's trusted proxies.
func (a *Adapter) ClientIP(ctx *fasthttp.RequestCtx) string {
	if a == nil {
		return ClientIP(ctx)
	}
	return a.proxies.ClientIP(ctx)
}

// Attach creates a context with timeout derived from the adapter and enriches it
// with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := RequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)

	if remoteAddr := a.ClientIP(ctx); remoteAddr != "" {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr)
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}

	return stdCtx, cancel
}

const maxRequestIDLength = 64

// RequestID returns the request ID for ctx, generating and echoing one on first use.
// Client supplied IDs are kept only when short and made of [A-Za-z0-9._-].
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if id, ok := ctx.UserValue(appLogger.RequestIDField).(string); ok && id != "" {
		return id
	}
	id := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID")))
	if !validRequestID(id) {
		id = uuid.NewString()
	}
	ctx.SetUserValue(appLogger.RequestIDField, id)
	ctx.Response.Header.Set("X-Request-ID", id)
	return id
}

// SetPrincipal records the authenticated caller on the request.
func SetPrincipal(ctx *fasthttp.RequestCtx, p *domain.Principal) {
	if p == nil {
		return
	}
	ctx.SetUserValue(string(KeyPrincipal), p)
}

// Principal returns the authenticated caller, or nil when none was resolved.
func Principal(ctx *fasthttp.RequestCtx) *domain.Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.UserValue(string(KeyPrincipal)).(*domain.Principal)
	return p
}

// SetSessionID records the session the bearer token belongs to.
func SetSessionID(ctx *fasthttp.RequestCtx, id string) {
	if id == "" {
		return
	}
	ctx.SetUserValue(string(KeySessionID), id)
}

// SessionID returns the session resolved for the request, if any.
func SessionID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.UserValue(string(KeySessionID)).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
