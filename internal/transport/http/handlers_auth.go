package http

import (
	"net/http"

	"github.com/palabeo/palabeo/internal/domain"
	"github.com/palabeo/palabeo/internal/service"
	"github.com/palabeo/palabeo/internal/validation"
)

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         userResponse `json:"user"`
}

func toAuthResponse(res *service.LoginResult) authResponse {
	return authResponse{
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
		ExpiresIn:    res.Session.ExpiresIn,
		User:         toUserResponse(res.User),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Auth.Register(r.Context(), payload, clientInfo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result.Session)
	s.writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Auth.Login(r.Context(), payload, clientInfo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result.Session)
	s.writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// refreshToken reads the "refreshToken" field of the body.
func refreshToken(r *http.Request) (string, error) {
	payload, err := readPayload(r)
	if err != nil {
		return "", err
	}
	token, _ := payload["refreshToken"].(string)
	return token, nil
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := refreshToken(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if token == "" {
		s.writeError(w, r, validation.Errors{{
			Field:   "refreshToken",
			Code:    validation.CodeRequired,
			Message: "Refresh token is required",
		}})
		return
	}

	result, err := s.deps.Auth.Refresh(r.Context(), token, clientInfo(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setSessionCookie(w, result.Session)
	s.writeJSON(w, http.StatusOK, toAuthResponse(result))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := refreshToken(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r.Context())
	if !ok {
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}

	if err := s.deps.Auth.LogoutAll(r.Context(), session.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out from all devices"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := getSession(r.Context())
	if !ok {
		s.writeError(w, r, domain.ErrUnauthorized)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}
