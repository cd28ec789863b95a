package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// AdminService manages accounts on behalf of a signed-in administrator.
// Every call requires the canManageUsers capability; creating or promoting
// to an admin role additionally requires canManageAdmins.
type AdminService struct {
	auth *AuthStore
	api  ports.AdminAPI
	log  zerolog.Logger
}

// NewAdminService gates api behind the session held by auth.
func NewAdminService(auth *AuthStore, api ports.AdminAPI, log zerolog.Logger) *AdminService {
	return &AdminService{auth: auth, api: api, log: log.With().Str("service", "admin").Logger()}
}

// authorize returns the token of a session allowed to manage users.
func (s *AdminService) authorize(target domain.Role) (string, error) {
	sess := s.auth.State()
	if !sess.IsAuthenticated {
		return "", domain.ErrNotAuthenticated
	}
	access := DeriveAccess(sess.Role())
	if !access.CanManageUsers() {
		return "", domain.ErrForbidden
	}
	if target != "" && domain.NormalizeRole(target) != domain.RoleUser && !access.Can(domain.CanManageAdmins) {
		return "", domain.ErrForbidden
	}
	return sess.Token, nil
}

// ListUsers returns every account the backend knows.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, ports.Result) {
	token, err := s.authorize("")
	if err != nil {
		return nil, ports.Fail(err)
	}
	users, err := s.api.ListUsers(ctx, token)
	if err != nil {
		return nil, ports.Fail(err)
	}
	return users, ports.OK("")
}

// CreateUser creates an account; an admin role needs canManageAdmins.
func (s *AdminService) CreateUser(ctx context.Context, in ports.AdminUserInput) (*domain.User, ports.Result) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	token, err := s.authorize(in.Role)
	if err != nil {
		return nil, ports.Fail(err)
	}
	u, err := s.api.CreateUser(ctx, token, in)
	if err != nil {
		return nil, ports.Fail(err)
	}
	s.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user created")
	return u, ports.OK("user created")
}

// UpdateUser replaces the account's profile and role.
func (s *AdminService) UpdateUser(ctx context.Context, id string, in ports.AdminUserInput) (*domain.User, ports.Result) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, ports.Fail(err)
	}
	token, err := s.authorize(in.Role)
	if err != nil {
		return nil, ports.Fail(err)
	}
	u, err := s.api.UpdateUser(ctx, token, id, in)
	if err != nil {
		return nil, ports.Fail(err)
	}
	return u, ports.OK("user updated")
}

// DisableUser blocks further logins for the account.
func (s *AdminService) DisableUser(ctx context.Context, id string) (*domain.User, ports.Result) {
	token, err := s.authorize("")
	if err != nil {
		return nil, ports.Fail(err)
	}
	u, err := s.api.DisableUser(ctx, token, id)
	if err != nil {
		return nil, ports.Fail(err)
	}
	s.log.Info().Str("user_id", id).Msg("user disabled")
	return u, ports.OK("user disabled")
}

// DeleteUser removes the account and its content.
func (s *AdminService) DeleteUser(ctx context.Context, id string) ports.Result {
	token, err := s.authorize("")
	if err != nil {
		return ports.Fail(err)
	}
	if err := s.api.DeleteUser(ctx, token, id); err != nil {
		return ports.Fail(err)
	}
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return ports.OK("user deleted")
}
