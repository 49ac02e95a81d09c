package services

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"visadesk/internal/auth"
	"visadesk/internal/domain"
	"visadesk/internal/logger"
	"visadesk/internal/metrics"
	apperrors "visadesk/pkg/errors"
)

// LoginPayload is the login request body
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries the issued access token
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserResult is the public view of an account
type UserResult struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  *string    `json:"full_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	IsAdmin   bool       `json:"is_admin"`
	IsStaff   bool       `json:"is_staff"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func convertUserToResult(u *domain.User) *UserResult {
	return &UserResult{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		IsStaff:   u.IsStaff,
		LastLogin: u.LastLogin,
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	var p LoginPayload
	if err := s.decode(r, &p); err != nil {
		return err
	}
	if p.Username == "" || p.Password == "" {
		return apperrors.Validation("username and password are required", map[string]string{
			"username": "is required",
			"password": "is required",
		})
	}

	log := logger.FromContext(r.Context())
	user, err := s.users.Authenticate(r.Context(), p.Username, p.Password)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		log.Info("login failed", zap.String("username", p.Username), zap.Error(err))
		return err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		return err
	}

	metrics.RecordAuthAttempt(true)
	log.Info("login successful",
		zap.String("username", user.Username),
		zap.Uint("id", user.ID),
		zap.Bool("admin", user.IsAdmin))

	s.respond(w, r, http.StatusOK, LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
	return nil
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) error {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return apperrors.Unauthorized("authentication required")
	}
	s.respond(w, r, http.StatusOK, convertUserToResult(user))
	return nil
}
