package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestLogger logs every request once it completes, at a level chosen
// by the response status.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		switch {
		case status >= 500:
			zap.L().Error("server: request completed", fields...)
		case status >= 400:
			zap.L().Warn("server: request completed", fields...)
		default:
			zap.L().Debug("server: request completed", fields...)
		}
	})
}

// ipLimiter holds one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newIPLimiter returns a limiter allowing perSec requests per client with
// the given burst. A non-positive perSec disables limiting.
func newIPLimiter(perSec float64, burst int) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSec),
		burst:    burst,
	}
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	if l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientKey(r)).Allow() {
			zap.L().Warn("server: rate limit exceeded",
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
