package transport

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Middleware wraps an http.RoundTripper with extra behavior.
type Middleware func(http.RoundTripper) http.RoundTripper

// Chain applies middlewares to base in order: the first middleware sees the
// request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RequestID stamps every outgoing request with a fresh X-Request-Id so
// server logs can be correlated with client logs.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			r := req.Clone(req.Context())
			if r.Header.Get("X-Request-Id") == "" {
				r.Header.Set("X-Request-Id", uuid.NewString())
			}
			return next.RoundTrip(r)
		})
	}
}

// Logging logs each HTTP call with timing, status and request ID.
func Logging(logger *zap.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(req)

			duration := time.Since(start)
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}

			logLevel := zapcore.InfoLevel
			if err != nil || status >= http.StatusInternalServerError {
				logLevel = zapcore.ErrorLevel
			}

			logger.Check(logLevel, "http call").Write(
				zap.String("method", req.Method),
				zap.String("url", req.URL.Path),
				zap.String("request_id", req.Header.Get("X-Request-Id")),
				zap.Duration("duration", duration),
				zap.Int("status", status),
				zap.Error(err),
			)

			return resp, err
		})
	}
}
