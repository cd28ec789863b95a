package ports

import (
	"context"

	"github.com/innerpath/client-core/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=8"`
	Username  string `json:"username"  validate:"required,min=3,max=30"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
}

// LoginInput is validated before the login request is sent.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate is a partial profile change; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName      *string `json:"firstName,omitempty"      validate:"omitempty,min=1"`
	LastName       *string `json:"lastName,omitempty"       validate:"omitempty,min=1"`
	Username       *string `json:"username,omitempty"       validate:"omitempty,min=3,max=30"`
	ProfilePicture *string `json:"profilePicture,omitempty" validate:"omitempty,url"`
}

// AuthAPI wraps the backend auth endpoints. Failures are *domain.APIError.
type AuthAPI interface {
	Login(ctx context.Context, in LoginInput) (*domain.AuthPayload, error)
	Register(ctx context.Context, in RegisterInput) (string, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthPayload, error)
	UpdateProfile(ctx context.Context, token string, in ProfileUpdate) (*domain.User, error)
}
