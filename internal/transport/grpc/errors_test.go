package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

func TestMapDomainError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrNotFound, codes.NotFound},
		{fmt.Errorf("get word: %w", domain.ErrNotFound), codes.NotFound},
		{domain.ErrEmptyCollection, codes.NotFound},
		{domain.ErrAlreadyExists, codes.AlreadyExists},
		{domain.ErrInvalidCredential, codes.Unauthenticated},
		{domain.ErrTokenRevoked, codes.Unauthenticated},
		{domain.ErrForbidden, codes.PermissionDenied},
		{domain.ErrVersionMismatch, codes.Aborted},
		{domain.ErrRateLimited, codes.ResourceExhausted},
		{domain.ErrUpstream, codes.Unavailable},
		{validation.Errors{{Field: "word", Code: validation.CodeRequired, Message: "Word is required"}}, codes.InvalidArgument},
		{&service.SessionError{}, codes.Unauthenticated},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, status.Code(mapDomainError(tt.err)))
		})
	}

	assert.NoError(t, mapDomainError(nil))
}
