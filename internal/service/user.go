// Package service contains the business logic layer.
// Services validate input, orchestrate operations across repositories and
// publish events. They do not know about HTTP, gRPC, or transport details;
// access control is the transport's job.
package service

import (
	"context"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/event"
	"github.com/palabeo/palabeo/internal/storage"
	"github.com/palabeo/palabeo/internal/validation"
)

// UserService handles account management.
type UserService struct {
	users     storage.UserRepository
	tokens    storage.TokenRepository
	publisher event.Publisher
}

func NewUserService(
	users storage.UserRepository,
	tokens storage.TokenRepository,
	publisher event.Publisher,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
	}
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	Total int64
	validation.Pagination
}

// CreateUser creates an account on behalf of createdBy. The payload may
// carry a role; without one the account is a USER. The account has no
// password until its owner sets one.
func (s *UserService) CreateUser(ctx context.Context, payload map[string]any, createdBy string) (*domain.User, error) {
	res := validation.ValidateUserCreationData(payload)
	errs := res.Errors

	role := validation.RoleUser
	if v, present := payload[validation.FieldRole]; present {
		roleRes := validation.ValidateRole(v)
		if roleRes.Success {
			role = roleRes.Data
		} else {
			errs = append(errs, roleRes.Errors...)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	name := res.Data.Name
	user := domain.NewUser(res.Data.Email, &name, role, res.Data.UserLanguage, res.Data.LearnedLanguage)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.UserCreatedEvent(user, createdBy))

	return user, nil
}

// GetUser returns the account with the given CUID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	res := validation.ValidateUserID(id)
	if !res.Success {
		return nil, res.Errors
	}
	return s.users.GetByID(ctx, res.Data)
}

// ListUsers returns one page of accounts. page and limit are raw query
// values; role and search are optional filters.
func (s *UserService) ListUsers(ctx context.Context, page, limit any, role, search string) (*Page[domain.User], error) {
	res := validation.ValidatePaginationParams(page, limit)
	errs := res.Errors

	filter := storage.UserFilter{
		Search: validation.Sanitize(search),
		Offset: res.Data.Offset,
		Limit:  res.Data.Limit,
	}
	if role != "" {
		roleRes := validation.ValidateRole(role)
		if roleRes.Success {
			filter.Role = &roleRes.Data
		} else {
			errs = append(errs, roleRes.Errors...)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[domain.User]{Items: users, Total: total, Pagination: res.Data}, nil
}

// UpdateUser applies a partial update. The resulting user and learned
// languages must differ even when only one of them is sent.
func (s *UserService) UpdateUser(ctx context.Context, id string, payload map[string]any) (*domain.User, error) {
	idRes := validation.ValidateUserID(id)
	res := validation.ValidateUserUpdateData(payload)
	if errs := append(append(validation.Errors{}, idRes.Errors...), res.Errors...); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.users.GetByID(ctx, idRes.Data)
	if err != nil {
		return nil, err
	}
	if res.Data.Empty() {
		return user, nil
	}

	if err := user.Apply(res.Data); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventUserUpdated, user.ID, nil))

	return user, nil
}

// DeleteUser removes the account and ends all of its sessions.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	res := validation.ValidateUserID(id)
	if !res.Success {
		return res.Errors
	}

	if err := s.users.Delete(ctx, res.Data); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, res.Data); err != nil {
		return err
	}

	_ = s.publisher.Publish(ctx, domain.UserDeletedEvent(res.Data))

	return nil
}

// SetRole grants or revokes administrator access. The user's open sessions
// keep their old role until they expire, so all refresh tokens are revoked.
func (s *UserService) SetRole(ctx context.Context, id string, role any) (*domain.User, error) {
	idRes := validation.ValidateUserID(id)
	roleRes := validation.ValidateRole(role)
	if errs := append(append(validation.Errors{}, idRes.Errors...), roleRes.Errors...); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.users.GetByID(ctx, idRes.Data)
	if err != nil {
		return nil, err
	}
	if user.Role == roleRes.Data {
		return user, nil
	}

	user.Role = roleRes.Data
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, domain.NewEvent(domain.EventUserUpdated, user.ID, map[string]any{"role": string(user.Role)}))

	return user, nil
}
