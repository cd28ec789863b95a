package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

func navKeys(items []domain.NavItem) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

func TestDeriveAccess_User(t *testing.T) {
	a := DeriveAccess(domain.RoleUser)

	if !a.Can(domain.CanCreateJournal) {
		t.Fatalf("users can create journals")
	}
	if a.CanCreateBlog() || a.CanManageUsers() || a.IsAdmin() {
		t.Fatalf("user must not have admin capabilities: %+v", a.Permissions)
	}
	if a.HasNavItem("create") || a.HasNavItem("admin") {
		t.Fatalf("unexpected nav items: %v", navKeys(a.NavItems))
	}
	for _, k := range navKeys(a.MenuItems) {
		if k == "manage-users" || k == "admin-dashboard" || k == "system-settings" {
			t.Fatalf("unexpected menu item %s", k)
		}
	}
}

func TestDeriveAccess_SuperAdmin(t *testing.T) {
	a := DeriveAccess(domain.RoleSuperAdmin)

	for c, granted := range a.Permissions {
		if !granted {
			t.Fatalf("super admin lacks %s", c)
		}
	}
	want := []string{"home", "journal", "goals", "community", "create", "admin", "profile"}
	got := navKeys(a.NavItems)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(a.MenuItems) != len(menuTable) {
		t.Fatalf("super admin sees the whole menu, got %v", navKeys(a.MenuItems))
	}
}

func TestDeriveAccess_AdminCannotManageAdmins(t *testing.T) {
	a := DeriveAccess(domain.RoleAdmin)
	if !a.CanManageUsers() || !a.IsAdmin() {
		t.Fatalf("admin should manage users")
	}
	if a.Can(domain.CanManageAdmins) || a.Can(domain.CanManageSystem) {
		t.Fatalf("admin must not manage admins or the system")
	}
}

func TestDeriveAccess_AbsentOrUnknownRole(t *testing.T) {
	for _, r := range []domain.Role{"", "guest", "root"} {
		if got := DeriveAccess(r); got != DeriveAccess(domain.RoleUser) {
			t.Fatalf("role %q should derive as USER", r)
		}
	}
	if DeriveAccess("admin") != DeriveAccess(domain.RoleAdmin) {
		t.Fatalf("roles are case-insensitive")
	}
}

func TestDeriveAccess_StableIdentity(t *testing.T) {
	if DeriveAccess(domain.RoleAdmin) != DeriveAccess(domain.RoleAdmin) {
		t.Fatalf("same role must yield the same value")
	}
}

func TestAccessDeriver_FollowsSession(t *testing.T) {
	auth, api, _ := newTestAuth(t)
	api.roles["alice@example.com"] = domain.RoleAdmin
	d := NewAccessDeriver(auth)

	if d.Current().Role != domain.RoleUser {
		t.Fatalf("signed-out access should be USER")
	}

	var changes []domain.Role
	unsubscribe := d.OnChange(func(a *domain.Access) { changes = append(changes, a.Role) })
	defer unsubscribe()

	ctx := context.Background()
	auth.Login(ctx, "alice@example.com", "password123")
	if !d.Current().IsAdmin() {
		t.Fatalf("expected admin access after login")
	}
	auth.Logout(ctx)

	if len(changes) != 2 || changes[0] != domain.RoleAdmin || changes[1] != domain.RoleUser {
		t.Fatalf("unexpected role changes: %v", changes)
	}
}

func TestAdminService_RequiresManageUsers(t *testing.T) {
	auth, api, _ := newTestAuth(t)
	adminAPI := &stubAdminAPI{}
	svc := NewAdminService(auth, adminAPI, zerolog.Nop())
	ctx := context.Background()

	if _, res := svc.ListUsers(ctx); !errors.Is(res.Err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %+v", res)
	}

	auth.Login(ctx, "alice@example.com", "password123")
	if _, res := svc.ListUsers(ctx); !errors.Is(res.Err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for USER, got %+v", res)
	}
	if adminAPI.calls != 0 {
		t.Fatalf("forbidden calls must not reach the backend")
	}

	auth.Logout(ctx)
	api.roles["alice@example.com"] = domain.RoleAdmin
	auth.Login(ctx, "alice@example.com", "password123")

	users, res := svc.ListUsers(ctx)
	if !res.Success || len(users) != 1 {
		t.Fatalf("admin list failed: %+v", res)
	}
	if _, res := svc.CreateUser(ctx, ports.AdminUserInput{Email: "Carol@example.com", Username: "carol"}); !res.Success {
		t.Fatalf("admin create failed: %+v", res)
	}
	if _, res := svc.CreateUser(ctx, ports.AdminUserInput{Email: "dan@example.com", Username: "dan", Role: domain.RoleAdmin}); !errors.Is(res.Err, domain.ErrForbidden) {
		t.Fatalf("ADMIN must not create admins, got %+v", res)
	}
	if u, res := svc.DisableUser(ctx, "u1"); !res.Success || !u.Disabled {
		t.Fatalf("disable failed: %+v", res)
	}
	if res := svc.DeleteUser(ctx, "u1"); !res.Success {
		t.Fatalf("delete failed: %+v", res)
	}
}

func TestAdminService_SuperAdminManagesAdmins(t *testing.T) {
	auth, api, _ := newTestAuth(t)
	api.roles["alice@example.com"] = domain.RoleSuperAdmin
	svc := NewAdminService(auth, &stubAdminAPI{}, zerolog.Nop())
	ctx := context.Background()
	auth.Login(ctx, "alice@example.com", "password123")

	u, res := svc.UpdateUser(ctx, "u1", ports.AdminUserInput{Email: "bob@example.com", Username: "bob", Role: domain.RoleAdmin})
	if !res.Success || u.Role != domain.RoleAdmin {
		t.Fatalf("super admin promote failed: %+v", res)
	}
}
