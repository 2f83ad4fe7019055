package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Defaults used when a Limiter is built with zero values.
const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// Result is the outcome of one Allow call.
type Result struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Allowed   bool
}

// RetryAfter returns how long a denied caller should wait, rounded up to a
// whole second. It is zero for allowed requests.
func (r *Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d.Truncate(time.Second) + time.Second
}

// Limiter allows at most Limit hits per key in each fixed window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New creates a limiter. Non-positive limit or window fall back to 20 hits
// per minute.
func New(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	count, resetAt, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		return nil, err
	}

	return &Result{
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(count)),
		ResetAt:   resetAt,
		Allowed:   count <= int64(l.limit),
	}, nil
}

// ClientIP returns the first X-Forwarded-For entry, else X-Real-IP, else
// 127.0.0.1. RemoteAddr is never used.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "127.0.0.1"
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(r *http.Request) string

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	keyFunc  KeyFunc
	onDenied func(r *http.Request)
	logger   *slog.Logger
}

// WithKeyFunc replaces ClientIP as the key source.
func WithKeyFunc(fn KeyFunc) MiddlewareOption {
	return func(c *middlewareConfig) { c.keyFunc = fn }
}

// WithOnDenied registers a callback run for every rejected request.
func WithOnDenied(fn func(r *http.Request)) MiddlewareOption {
	return func(c *middlewareConfig) { c.onDenied = fn }
}

// WithLogger sets the logger used when the store fails.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) { c.logger = logger }
}

// Middleware rejects requests over the limit with 429 before the wrapped
// handler runs. When the store fails the request is let through.
func Middleware(l *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		keyFunc: ClientIP,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := l.Allow(r.Context(), cfg.keyFunc(r))
			if err != nil {
				cfg.logger.ErrorContext(r.Context(), "rate limit check failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				if cfg.onDenied != nil {
					cfg.onDenied(r)
				}
				retryAfter := result.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorBody is the JSON body of a 429 response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(ErrorBody{
		Error:   "Too many requests",
		Message: "Rate limit exceeded. Please try again later.",
	})
}

