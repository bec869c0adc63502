package middleware

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/pkg/httpcontext"
)

// Authenticator resolves a bearer token into a principal and session id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, string, error)
}

// ResolvePrincipal attaches the caller's principal when the request carries a
// valid bearer token. It never rejects a request; a missing principal is
// turned into a 401 by Authorize.
func ResolvePrincipal(auth Authenticator, adapter *httpcontext.Adapter, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				next(ctx)
				return
			}

			stdCtx, cancel := adapter.Attach(ctx)
			principal, sessionID, err := auth.Authenticate(stdCtx, tokenString)
			cancel()
			if err != nil {
				fields := []zap.Field{
					zap.String("request_id", httpcontext.RequestID(ctx)),
					zap.Error(err),
				}
				if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
					logger.Debug("bearer token rejected", fields...)
				} else {
					logger.Warn("principal resolution failed", fields...)
				}
				next(ctx)
				return
			}

			httpcontext.SetPrincipal(ctx, principal)
			httpcontext.SetSessionID(ctx, sessionID)
			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
