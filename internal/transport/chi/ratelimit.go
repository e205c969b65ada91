package chi

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/boost/internal/logger"
	"github.com/kailas-cloud/boost/internal/usecase/ratelimit"
)

// RateLimitMiddleware runs the wrapped handler behind the quota gate.
// Denials are written as 429 responses; the handler is not called.
func RateLimitMiddleware(gate *ratelimit.Gate, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientIP(r)
			_, err := ratelimit.Guard(r.Context(), gate, client, func(ctx context.Context) (struct{}, error) {
				next.ServeHTTP(w, r.WithContext(ctx))
				return struct{}{}, nil
			})
			if err != nil {
				log := logpkg.FromContextOr(r.Context(), logger)
				handleDomainError(w, log.With(zap.String("client", client)), err)
			}
		})
	}
}

// ClientIP returns the host part of the request's remote address.
// With middleware.RealIP installed, RemoteAddr already carries the proxied address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
