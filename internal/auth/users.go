package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"visadesk/internal/domain"
	apperrors "visadesk/pkg/errors"
)

// Users reads and writes back-office accounts
type Users struct {
	db *gorm.DB
}

// NewUsers creates a user repository
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// ByUsername loads an account
func (u *Users) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user", username)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Authenticate checks credentials and stamps the last login.
// Every failure is reported as the same Unauthorized error.
func (u *Users) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := u.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("incorrect username or password")
		}
		return nil, err
	}
	if !CheckPasswordHash(password, user.HashedPassword) {
		return nil, apperrors.Unauthorized("incorrect username or password")
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("user account is inactive")
	}

	now := time.Now().UTC()
	if err := u.db.WithContext(ctx).Model(user).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLogin = &now
	return user, nil
}

// Resolve maps verified claims to an active account
func (u *Users) Resolve(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := u.ByUsername(ctx, claims.Username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.Unauthorized("user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized("user account is inactive")
	}
	return user, nil
}

// NewAccount describes an account to create
type NewAccount struct {
	Username string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
	IsStaff  bool
}

// Create adds an account, failing with Conflict when the username or email is taken
func (u *Users) Create(ctx context.Context, acc NewAccount) (*domain.User, error) {
	username := strings.TrimSpace(acc.Username)
	email := strings.ToLower(strings.TrimSpace(acc.Email))
	if username == "" || email == "" || acc.Password == "" {
		return nil, apperrors.Validation("username, email and password are required", nil)
	}

	var n int64
	err := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&n).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if n > 0 {
		return nil, apperrors.Conflict("user", username, "username or email already registered")
	}

	hash, err := HashPassword(acc.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
		IsAdmin:        acc.IsAdmin,
		IsStaff:        acc.IsStaff || acc.IsAdmin,
	}
	if name := strings.TrimSpace(acc.FullName); name != "" {
		user.FullName = &name
	}
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
