package ports

import "context"

// KVStore is the persistent key-value port used by every container.
// A missing key is reported as ("", false, nil).
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys ...string) error
}

// Pinger is implemented by KV backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Persisted keys.
const (
	KeyToken                   = "authToken"
	KeyUser                    = "userData"
	KeyRefreshToken            = "refreshToken"
	KeyEmailVerificationStatus = "emailVerificationStatus"
	KeyPasswordResetStatus     = "passwordResetStatus"
	KeyDarkMode                = "isDarkMode"
	KeyOnboardingSeen          = "hasSeenOnboarding"
	KeyNotificationsEnabled    = "notificationsEnabled"
	KeyFirstLaunch             = "isFirstLaunch"
	KeyDeviceID                = "deviceId"
)

// SessionKeys are removed on logout.
var SessionKeys = []string{
	KeyToken,
	KeyUser,
	KeyRefreshToken,
	KeyEmailVerificationStatus,
	KeyPasswordResetStatus,
}
