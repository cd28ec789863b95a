package service

import "github.com/innerpath/client-core/internal/core/domain"

var rolePermissions = map[domain.Role][]domain.Capability{
	domain.RoleUser: {
		domain.CanCreateJournal,
	},
	domain.RoleAdmin: {
		domain.CanCreateJournal,
		domain.CanCreateBlog,
		domain.CanEditBlog,
		domain.CanDeleteBlog,
		domain.CanModerateComments,
		domain.CanViewAnalytics,
		domain.CanManageUsers,
		domain.CanAccessAdminPanel,
	},
	domain.RoleSuperAdmin: {
		domain.CanCreateJournal,
		domain.CanCreateBlog,
		domain.CanEditBlog,
		domain.CanDeleteBlog,
		domain.CanModerateComments,
		domain.CanViewAnalytics,
		domain.CanManageUsers,
		domain.CanAccessAdminPanel,
		domain.CanManageAdmins,
		domain.CanManageSystem,
	},
}

var allCapabilities = rolePermissions[domain.RoleSuperAdmin]

// gatedItem is shown only when requires is granted; an empty requires is
// always shown.
type gatedItem struct {
	item     domain.NavItem
	requires domain.Capability
}

var navTable = []gatedItem{
	{item: domain.NavItem{Key: "home", Label: "Home", Icon: "home"}},
	{item: domain.NavItem{Key: "journal", Label: "Journal", Icon: "book"}},
	{item: domain.NavItem{Key: "goals", Label: "Goals", Icon: "target"}},
	{item: domain.NavItem{Key: "community", Label: "Community", Icon: "people"}},
	{item: domain.NavItem{Key: "create", Label: "Create", Icon: "add-circle"}, requires: domain.CanCreateBlog},
	{item: domain.NavItem{Key: "admin", Label: "Admin", Icon: "shield"}, requires: domain.CanAccessAdminPanel},
	{item: domain.NavItem{Key: "profile", Label: "Profile", Icon: "person"}},
}

var menuTable = []gatedItem{
	{item: domain.NavItem{Key: "edit-profile", Label: "Edit Profile", Icon: "create"}},
	{item: domain.NavItem{Key: "settings", Label: "Settings", Icon: "settings"}},
	{item: domain.NavItem{Key: "notifications", Label: "Notifications", Icon: "notifications"}},
	{item: domain.NavItem{Key: "manage-users", Label: "Manage Users", Icon: "people-circle"}, requires: domain.CanManageUsers},
	{item: domain.NavItem{Key: "admin-dashboard", Label: "Admin Dashboard", Icon: "analytics"}, requires: domain.CanAccessAdminPanel},
	{item: domain.NavItem{Key: "system-settings", Label: "System Settings", Icon: "construct"}, requires: domain.CanManageSystem},
	{item: domain.NavItem{Key: "help", Label: "Help & Support", Icon: "help-circle"}},
	{item: domain.NavItem{Key: "sign-out", Label: "Sign Out", Icon: "log-out"}},
}

// accessTable holds one precomputed Access per role, so Derive hands out the
// same pointer for the same role.
var accessTable = func() map[domain.Role]*domain.Access {
	t := make(map[domain.Role]*domain.Access, len(rolePermissions))
	for role := range rolePermissions {
		t[role] = buildAccess(role)
	}
	return t
}()

func buildAccess(role domain.Role) *domain.Access {
	perms := make(map[domain.Capability]bool, len(allCapabilities))
	for _, c := range allCapabilities {
		perms[c] = false
	}
	for _, c := range rolePermissions[role] {
		perms[c] = true
	}
	return &domain.Access{
		Role:        role,
		Permissions: perms,
		NavItems:    filterItems(navTable, perms),
		MenuItems:   filterItems(menuTable, perms),
	}
}

func filterItems(table []gatedItem, perms map[domain.Capability]bool) []domain.NavItem {
	out := make([]domain.NavItem, 0, len(table))
	for _, g := range table {
		if g.requires == "" || perms[g.requires] {
			out = append(out, g.item)
		}
	}
	return out
}

// DeriveAccess maps a role to its permission table and navigation. Absent
// or unknown roles derive as USER.
func DeriveAccess(role domain.Role) *domain.Access {
	return accessTable[domain.NormalizeRole(role)]
}

// AccessDeriver derives the current user's Access from the auth store.
type AccessDeriver struct {
	auth *AuthStore
}

// NewAccessDeriver returns a deriver reading the session from auth.
func NewAccessDeriver(auth *AuthStore) *AccessDeriver {
	return &AccessDeriver{auth: auth}
}

// Current returns the Access of the signed-in user, or USER access when
// nobody is signed in.
func (d *AccessDeriver) Current() *domain.Access {
	return DeriveAccess(d.auth.State().Role())
}

// OnChange calls fn with the new Access whenever the session role changes.
func (d *AccessDeriver) OnChange(fn func(*domain.Access)) (unsubscribe func()) {
	return d.auth.Subscribe(func(prev, next domain.Session) {
		if prev.Role() != next.Role() {
			fn(DeriveAccess(next.Role()))
		}
	})
}
