package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/ratelimit"
	"github.com/palabeo/palabeo/internal/service"
)

// sessionToken returns the session token from the Authorization header,
// falling back to the session cookie.
func (s *Server) sessionToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(s.cookie.name); err == nil {
		return c.Value
	}
	return ""
}

// requireSession validates the session and stores its identity in the
// request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.deps.Auth.ParseSession(s.sessionToken(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := setSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin lets only ADMIN sessions through. It must run after
// requireSession.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := getSession(r.Context())
		if !ok {
			s.writeError(w, r, domain.ErrUnauthorized)
			return
		}

		if !session.IsAdmin() {
			s.writeJSON(w, http.StatusForbidden, errorResponse{
				Error:   "forbidden",
				Code:    "FORBIDDEN",
				Message: "Administrator access required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit applies the configured limiter, keyed by client IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return next
	}
	return ratelimit.Middleware(s.deps.Limiter,
		ratelimit.WithLogger(s.logger),
		ratelimit.WithOnDenied(func(r *http.Request) {
			s.deps.Metrics.RateLimited()
			s.logger.InfoContext(r.Context(), "rate limit exceeded",
				slog.String("client_ip", ratelimit.ClientIP(r)),
			)
		}),
	)(next)
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// setSessionCookie stores the session token in an HttpOnly cookie for
// browser clients.
func (s *Server) setSessionCookie(w http.ResponseWriter, session *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.name,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
