package ports

import (
	"context"

	"github.com/innerpath/client-core/internal/core/domain"
)

// AdminUserInput creates or updates an account from the admin panel.
type AdminUserInput struct {
	Email     string      `json:"email"              validate:"required,email"`
	Username  string      `json:"username"           validate:"required,min=3,max=30"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Password  string      `json:"password,omitempty" validate:"omitempty,min=8"`
	Role      domain.Role `json:"role"               validate:"omitempty,oneof=USER ADMIN SUPER_ADMIN"`
}

// AdminAPI wraps the user-administration endpoints.
type AdminAPI interface {
	ListUsers(ctx context.Context, token string) ([]domain.User, error)
	CreateUser(ctx context.Context, token string, in AdminUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, token, id string, in AdminUserInput) (*domain.User, error)
	DisableUser(ctx context.Context, token, id string) (*domain.User, error)
	DeleteUser(ctx context.Context, token, id string) error
}
