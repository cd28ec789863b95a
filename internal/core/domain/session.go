package domain

// SessionPhase is the coarse lifecycle state of a Session.
type SessionPhase string

const (
	PhaseUninitialized   SessionPhase = "uninitialized"
	PhaseRestoring       SessionPhase = "restoring"
	PhaseAuthenticated   SessionPhase = "authenticated"
	PhaseUnauthenticated SessionPhase = "unauthenticated"
)

// Session is the authenticated-principal state owned by the auth store.
type Session struct {
	User            *User        `json:"user"`
	Token           string       `json:"-"`
	RefreshToken    string       `json:"-"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsLoading       bool         `json:"isLoading"`
	Error           string       `json:"error,omitempty"`
	Phase           SessionPhase `json:"phase"`
}

// Role returns the session user's role, RoleUser when absent.
func (s Session) Role() Role {
	if s.User == nil {
		return RoleUser
	}
	return NormalizeRole(s.User.Role)
}

// AuthPayload is what the backend returns on login and token refresh.
type AuthPayload struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user"`
}
