package middleware

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/carelink/backend/pkg/httpcontext"
)

// AccessLog assigns a request id and logs every completed request.
func AccessLog(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			requestID := httpcontext.RequestID(ctx)
			next(ctx)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", ctx.Response.StatusCode()),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", httpcontext.ClientIP(ctx)),
			}
			if op, ok := ctx.UserValue(string(httpcontext.KeyOperation)).(string); ok {
				fields = append(fields, zap.String("operation", op))
			}
			if p := httpcontext.Principal(ctx); p != nil {
				fields = append(fields, zap.String("user_id", p.ID))
			}
			if ctx.Response.StatusCode() >= fasthttp.StatusInternalServerError {
				logger.Warn("request completed", fields...)
				return
			}
			logger.Info("request completed", fields...)
		}
	}
}
