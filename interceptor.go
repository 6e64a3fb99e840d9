package rapid

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// TransportFunc is the next hop in an interceptor chain: either another
// interceptor or the transport's send itself.
type TransportFunc func(*http.Request) (*http.Response, error)

// Interceptor wraps the transport call of every request sent through a
// Client. Interceptors can:
//   - Inspect/modify the request before calling next
//   - Inspect the response after calling next
//   - Short-circuit by returning an error without calling next
//
// They run around the network round-trip only; binding, building and
// response resolution are outside the chain.
type Interceptor func(ctx context.Context, req *http.Request, next TransportFunc) (*http.Response, error)

// chainInterceptors combines the interceptors and the final transport call
// into one function. The first interceptor in the slice is the outermost.
func chainInterceptors(interceptors []Interceptor, final TransportFunc) func(context.Context, *http.Request) (*http.Response, error) {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		next := final
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic := interceptors[i]
			inner := next
			next = func(r *http.Request) (*http.Response, error) {
				return ic(ctx, r, inner)
			}
		}
		return next(req)
	}
}

// LoggingInterceptor creates an interceptor that logs each round-trip using
// slog, including duration and status.
func LoggingInterceptor(logger *slog.Logger) Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req *http.Request, next TransportFunc) (*http.Response, error) {
		start := time.Now()
		resp, err := next(req)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "request failed",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Duration("duration", duration),
				slog.Any("error", err))
			return resp, err
		}
		logger.InfoContext(ctx, "request completed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", duration))
		return resp, err
	}
}
