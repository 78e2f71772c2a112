package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/davidbz/kodama/internal/config"
	"github.com/davidbz/kodama/internal/observability"
)

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// New builds the standard chain: CORS, then trace injection.
func New(corsCfg *config.CORSConfig) Middleware {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return corsHandler.Handler(Trace()(next))
	}
}

// Trace injects trace, span, and request IDs into every request and logs
// the request start.
func Trace() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			traceID := observability.GenerateTraceID()
			ctx = observability.WithTraceID(ctx, traceID)

			spanID := observability.GenerateSpanID()
			ctx = observability.WithSpanID(ctx, spanID)

			requestID := observability.GenerateRequestID()
			ctx = observability.WithRequestID(ctx, requestID)

			w.Header().Set("X-Trace-Id", traceID)
			w.Header().Set("X-Request-Id", requestID)

			observability.FromContext(ctx).Info("request started",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("remote_addr", r.RemoteAddr),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
