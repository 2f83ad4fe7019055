package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

// User response types

type userResponse struct {
	ID              string              `json:"id"`
	Email           string              `json:"email"`
	Name            *string             `json:"name"`
	Role            validation.Role     `json:"role"`
	UserLanguage    validation.Language `json:"userLanguage"`
	LearnedLanguage validation.Language `json:"learnedLanguage"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		UserLanguage:    u.UserLanguage,
		LearnedLanguage: u.LearnedLanguage,
		CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       u.UpdatedAt.Format(time.RFC3339),
	}
}

type pageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func toPageResponse[S, T any](page *service.Page[S], convert func(*S) T) pageResponse[T] {
	items := make([]T, len(page.Items))
	for i := range page.Items {
		items[i] = convert(&page.Items[i])
	}
	return pageResponse[T]{Items: items, Total: page.Total, Page: page.Page, Limit: page.Limit}
}

// User handlers

func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r.Context())
	if !ok {
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}

	user, err := s.deps.Users.GetUser(r.Context(), session.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r.Context())
	if !ok {
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}

	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.deps.Users.UpdateUser(r.Context(), session.UserID, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Admin user handlers

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := s.deps.Users.ListUsers(r.Context(),
		queryParam(r, validation.FieldPage),
		queryParam(r, validation.FieldLimit),
		query.Get("role"),
		query.Get("search"),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toPageResponse(page, toUserResponse))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())

	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.deps.Users.CreateUser(r.Context(), payload, session.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Users.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.deps.Users.UpdateUser(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Users.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	session, _ := getSession(r.Context())
	id := chi.URLParam(r, "id")

	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Administrators cannot demote themselves.
	if id == session.UserID && validation.ValidateRole(payload[validation.FieldRole]).Data == validation.RoleUser {
		s.writeError(w, r, domain.ErrConflict)
		return
	}

	user, err := s.deps.Users.SetRole(r.Context(), id, payload[validation.FieldRole])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// queryParam returns nil for absent keys so validators apply defaults.
func queryParam(r *http.Request, key string) any {
	q := r.URL.Query()
	if !q.Has(key) {
		return nil
	}
	return q.Get(key)
}
