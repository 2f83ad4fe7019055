package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

// mapDomainError converts domain errors to gRPC status errors
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}

	var sessionErr *service.SessionError
	if errors.As(err, &sessionErr) {
		if len(sessionErr.Errors) > 0 {
			return status.Error(codes.Unauthenticated, sessionErr.Errors.Error())
		}
		return status.Error(codes.Unauthenticated, err.Error())
	}

	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEmptyCollection):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrInvalidCredential):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrVersionMismatch), errors.Is(err, domain.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrTokenRevoked):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		return status.Error(codes.Unavailable, err.Error())
	}

	return status.Error(codes.Internal, "internal server error")
}
