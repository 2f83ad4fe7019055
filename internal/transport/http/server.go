// Package http provides the HTTP transport layer of the Palabeo API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/palabeo/palabeo/internal/config"
	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/metrics"
	"github.com/palabeo/palabeo/internal/ratelimit"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the services and infrastructure the server routes to.
type Deps struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Words     *service.WordService
	Quiz      *service.QuizService
	Translate *service.TranslateService

	// Limiter guards the translate route; nil disables rate limiting.
	Limiter *ratelimit.Limiter
	// Metrics may be nil, in which case /metrics is not served.
	Metrics *metrics.Collector

	HealthChecks map[string]HealthCheck
}

// Server is the HTTP server of the Palabeo API.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	deps       Deps
	cookie     cookieConfig
	logger     *slog.Logger
}

type cookieConfig struct {
	name   string
	secure bool
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		cookie: cookieConfig{
			name:   cfg.SessionCookieName,
			secure: cfg.SessionCookieSecure,
		},
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		// Public routes (no session required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// The limiter runs before the session and query are checked, so
		// rejected requests never reach validation.
		r.With(s.rateLimit, s.requireSession).Get("/translate", s.handleTranslate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/logout-all", s.handleLogoutAll)
			r.Get("/auth/session", s.handleSession)

			r.Route("/words", func(r chi.Router) {
				r.Get("/", s.handleSearchWords)
				r.Post("/", s.handleSaveWord)
				r.Get("/{id}", s.handleGetWord)
				r.Delete("/{id}", s.handleDeleteWord)
			})

			r.Get("/quiz", s.handleQuiz)
			r.Post("/quiz/answer", s.handleQuizAnswer)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", s.handleGetCurrentUser)
				r.Patch("/me", s.handleUpdateCurrentUser)

				// Admin routes
				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/", s.handleListUsers)
					r.Post("/", s.handleCreateUser)
					r.Get("/{id}", s.handleGetUser)
					r.Patch("/{id}", s.handleUpdateUser)
					r.Delete("/{id}", s.handleDeleteUser)
					r.Put("/{id}/role", s.handleSetRole)
				})
			})
		})
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.HealthChecks))
	for name, check := range s.deps.HealthChecks {
		if err := check(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	resp := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		resp["status"] = "degraded"
	}
	if len(checks) > 0 {
		resp["checks"] = checks
	}
	s.writeJSON(w, status, resp)
}

// Response helpers

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var resp any

	var validationErrs validation.Errors
	var sessionErr *service.SessionError

	switch {
	case errors.As(err, &sessionErr):
		status = http.StatusUnauthorized
		resp = sessionErrorBody(sessionErr)

	case errors.As(err, &validationErrs):
		s.deps.Metrics.ValidationFailed(validationErrs)
		status = http.StatusBadRequest
		resp = validation.CreateValidationErrorResponse(validationErrs)

	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		resp = errorResponse{Error: "resource not found", Code: "NOT_FOUND"}

	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
		resp = errorResponse{Error: "resource already exists", Code: "ALREADY_EXISTS"}

	case errors.Is(err, domain.ErrEmptyCollection):
		status = http.StatusNotFound
		resp = errorResponse{Error: "no words saved", Code: "EMPTY_COLLECTION",
			Message: "Save some words before starting a quiz"}

	case errors.Is(err, domain.ErrInvalidCredential):
		status = http.StatusUnauthorized
		resp = errorResponse{Error: "invalid credentials", Code: "INVALID_CREDENTIALS"}

	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenRevoked):
		status = http.StatusUnauthorized
		resp = errorResponse{Error: "session expired", Code: "SESSION_EXPIRED"}

	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		resp = errorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"}

	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
		resp = errorResponse{Error: "forbidden", Code: "FORBIDDEN"}

	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
		resp = errorResponse{Error: "conflict", Code: "CONFLICT"}

	case errors.Is(err, domain.ErrVersionMismatch):
		status = http.StatusConflict
		resp = errorResponse{Error: "resource was modified by another request", Code: "VERSION_MISMATCH"}

	case errors.Is(err, domain.ErrUpstream):
		s.logger.WarnContext(r.Context(), "translation proxy failed", slog.String("error", err.Error()))
		status = http.StatusBadGateway
		resp = errorResponse{Error: "translation service unavailable", Code: "UPSTREAM_ERROR"}

	default:
		s.logger.ErrorContext(r.Context(), "unhandled error", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		resp = errorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
	}

	s.writeJSON(w, status, resp)
}

// sessionErrorBody has the validation error shape. Tokens that fail
// verification carry no field errors, so a generic session error is used.
func sessionErrorBody(err *service.SessionError) validation.ErrorResponse {
	if len(err.Errors) > 0 {
		return validation.CreateValidationErrorResponse(err.Errors)
	}
	message := "Session is invalid"
	if errors.Is(err, domain.ErrTokenExpired) {
		message = "Session has expired"
	}
	return validation.CreateValidationErrorResponse(validation.Errors{{
		Field:   validation.FieldSession,
		Code:    validation.CodeInvalidType,
		Message: message,
	}})
}

// readPayload decodes a JSON object body. An empty body is an empty
// payload so that validators report the missing fields.
func readPayload(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, validation.Errors{{
			Field:   "body",
			Code:    validation.CodeInvalidType,
			Message: "Request body must be a JSON object",
		}}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// metricsMiddleware labels requests by route pattern so that path
// parameters do not create new series.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.deps.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.deps.Metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context helpers

type contextKey string

const (
	sessionKey contextKey = "session"
)

func setSession(ctx context.Context, session validation.SessionData) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func getSession(ctx context.Context) (validation.SessionData, bool) {
	session, ok := ctx.Value(sessionKey).(validation.SessionData)
	return session, ok
}
