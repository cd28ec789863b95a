package domain

// Capability names a single permission in the access table.
type Capability string

const (
	CanCreateJournal    Capability = "canCreateJournal"
	CanCreateBlog       Capability = "canCreateBlog"
	CanEditBlog         Capability = "canEditBlog"
	CanDeleteBlog       Capability = "canDeleteBlog"
	CanModerateComments Capability = "canModerateComments"
	CanViewAnalytics    Capability = "canViewAnalytics"
	CanManageUsers      Capability = "canManageUsers"
	CanAccessAdminPanel Capability = "canAccessAdminPanel"
	CanManageAdmins     Capability = "canManageAdmins"
	CanManageSystem     Capability = "canManageSystem"
)

// NavItem is an entry in the bottom navigation or the profile menu.
type NavItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

// Access is the permission set derived from a role. Values are shared
// between callers and must be treated as read-only.
type Access struct {
	Role        Role                `json:"role"`
	Permissions map[Capability]bool `json:"permissions"`
	NavItems    []NavItem           `json:"navItems"`
	MenuItems   []NavItem           `json:"menuItems"`
}

// Can reports whether the capability is granted.
func (a *Access) Can(c Capability) bool { return a.Permissions[c] }

func (a *Access) CanCreateBlog() bool  { return a.Can(CanCreateBlog) }
func (a *Access) CanManageUsers() bool { return a.Can(CanManageUsers) }
func (a *Access) IsAdmin() bool        { return a.Can(CanAccessAdminPanel) }

// HasNavItem reports whether the navigation contains key.
func (a *Access) HasNavItem(key string) bool {
	for _, it := range a.NavItems {
		if it.Key == key {
			return true
		}
	}
	return false
}
