package middleware

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/api/transport"
	"github.com/carelink/backend/domain"
	"github.com/carelink/backend/internal/access"
	"github.com/carelink/backend/pkg/httpcontext"
	"github.com/carelink/backend/pkg/metrics"
)

// Authorize gates next behind the policy declared for operation in table.
// Denied requests get the error envelope and next is not invoked.
func Authorize(table *access.Table, operation string, m *metrics.Metrics, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := table.PolicyFor(operation)
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.SetUserValue(string(httpcontext.KeyOperation), operation)
			principal := httpcontext.Principal(ctx)
			decision := access.Authorize(principal, policy)

			outcome := "allow"
			if !decision.Allowed {
				outcome = decision.Reason.String()
			}
			m.ObserveDecision(operation, outcome)
			if ce := logger.Check(zap.DebugLevel, "access decision"); ce != nil {
				fields := []zap.Field{
					zap.String("request_id", httpcontext.RequestID(ctx)),
					zap.String("operation", operation),
					zap.String("outcome", outcome),
				}
				if principal != nil {
					fields = append(fields,
						zap.String("user_id", principal.ID),
						zap.Stringer("role", principal.Role),
						zap.Stringer("status", principal.Status))
				}
				ce.Write(fields...)
			}

			if decision.Allowed {
				next(ctx)
				return
			}
			writeDenied(ctx, decision)
		}
	}
}

func writeDenied(ctx *fasthttp.RequestCtx, decision access.Decision) {
	status := http.StatusForbidden
	code := string(domain.ErrCodeForbidden)
	if decision.Reason == access.ReasonUnauthenticated {
		status = http.StatusUnauthorized
		code = string(domain.ErrCodeUnauthorized)
	}
	writeEnvelope(ctx, status, transport.NewError(code, decision.Err().Error(), map[string]string{
		"reason": decision.Reason.String(),
	}))
}

func writeEnvelope(ctx *fasthttp.RequestCtx, status int, env transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBodyString(env.String())
}
