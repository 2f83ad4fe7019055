// Package grpc provides the gRPC transport layer of the Palabeo API.
//
// Messages are google.protobuf.Struct values, so clients need no generated
// code beyond the well-known types.
package grpc

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/palabeo/palabeo/internal/metrics"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

// Server wraps the gRPC server with dependencies
type Server struct {
	grpcServer  *grpc.Server
	health      *health.Server
	authService *service.AuthService
	passwords   service.PolicySource
	metrics     *metrics.Collector
	logger      *slog.Logger
}

// NewServer creates a new gRPC server with all handlers registered.
// collector may be nil.
func NewServer(
	authService *service.AuthService,
	passwords service.PolicySource,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Server {
	s := &Server{
		health:      health.NewServer(),
		authService: authService,
		passwords:   passwords,
		metrics:     collector,
		logger:      logger,
	}

	// Create gRPC server with interceptors
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.loggingInterceptor,
			s.metricsInterceptor,
			s.recoveryInterceptor,
			s.authInterceptor,
		),
	)

	grpcServer.RegisterService(&validationServiceDesc, &validationHandler{server: s})
	grpcServer.RegisterService(&sessionServiceDesc, &sessionHandler{})
	healthpb.RegisterHealthServer(grpcServer, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(validationServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(sessionServiceName, healthpb.HealthCheckResponse_SERVING)

	s.grpcServer = grpcServer
	return s
}

// Serve starts the gRPC server on the given listener
func (s *Server) Serve(listener net.Listener) error {
	return s.grpcServer.Serve(listener)
}

// GracefulStop reports NOT_SERVING to health checks, then waits for
// in-flight calls to finish.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// loggingInterceptor logs all incoming requests
func (s *Server) loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	s.logger.Info("gRPC request",
		"method", info.FullMethod,
	)

	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Error("gRPC request failed",
			"method", info.FullMethod,
			"error", err,
		)
	}

	return resp, err
}

// metricsInterceptor counts calls by method and status code.
func (s *Server) metricsInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	s.metrics.ObserveGRPCRequest(info.FullMethod, status.Code(err).String())
	return resp, err
}

// recoveryInterceptor recovers from panics
func (s *Server) recoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("gRPC panic recovered",
				"method", info.FullMethod,
				"panic", r,
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()

	return handler(ctx, req)
}

// authInterceptor validates the session token of protected methods
func (s *Server) authInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	// Skip auth for public endpoints
	if isPublicMethod(info.FullMethod) {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if tokens := md.Get("authorization"); len(tokens) > 0 {
			token = tokens[0]
		}
	}
	// Remove "Bearer " prefix if present
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = token[7:]
	}

	session, err := s.authService.ParseSession(token)
	if err != nil {
		return nil, mapDomainError(err)
	}

	return handler(contextWithSession(ctx, session), req)
}

// sessionKey is the context key for the caller's session
type sessionKey struct{}

func contextWithSession(ctx context.Context, session validation.SessionData) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by the auth interceptor.
func SessionFromContext(ctx context.Context) (validation.SessionData, bool) {
	session, ok := ctx.Value(sessionKey{}).(validation.SessionData)
	return session, ok
}

// isPublicMethod returns true if the method doesn't require authentication
func isPublicMethod(method string) bool {
	publicMethods := map[string]bool{
		"/" + validationServiceName + "/Validate": true,
		"/grpc.health.v1.Health/Check":            true,
	}
	return publicMethods[method]
}
