package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
)

// --- Actions ---

type restoreStarted struct{}

type restoreFinished struct {
	user         *domain.User
	token        string
	refreshToken string
}

type loginStarted struct{}

type loginSucceeded struct{ payload domain.AuthPayload }

type loginFailed struct{ message string }

type logoutStarted struct{}

type sessionCleared struct{}

type profileUpdated struct{ user *domain.User }

type tokenRefreshed struct{ payload domain.AuthPayload }

type authErrorCleared struct{}

// InitialSession is the empty, not-yet-restored session.
func InitialSession() domain.Session {
	return domain.Session{Phase: domain.PhaseUninitialized}
}

func authReducer(s domain.Session, a Action) domain.Session {
	switch a := a.(type) {
	case restoreStarted:
		s.IsLoading = true
		s.Phase = domain.PhaseRestoring
	case restoreFinished:
		s.User = a.user.Clone()
		s.Token = a.token
		s.RefreshToken = a.refreshToken
		s.IsLoading = false
		s.Error = ""
		s.Phase = domain.PhaseUnauthenticated
	case loginStarted:
		s.IsLoading = true
		s.Error = ""
	case loginSucceeded:
		s.User = a.payload.User.Clone()
		s.Token = a.payload.Token
		s.RefreshToken = a.payload.RefreshToken
		s.IsLoading = false
		s.Error = ""
	case loginFailed:
		s.IsLoading = false
		s.Error = a.message
	case logoutStarted:
		s.IsLoading = true
	case sessionCleared:
		s = domain.Session{Phase: domain.PhaseUnauthenticated}
	case profileUpdated:
		s.User = a.user.Clone()
	case tokenRefreshed:
		s.Token = a.payload.Token
		if a.payload.RefreshToken != "" {
			s.RefreshToken = a.payload.RefreshToken
		}
		if a.payload.User != nil {
			s.User = a.payload.User.Clone()
		}
	case authErrorCleared:
		s.Error = ""
	default:
		return s
	}

	s.IsAuthenticated = s.User != nil && s.Token != ""
	if s.Phase != domain.PhaseRestoring || !s.IsLoading {
		if s.IsAuthenticated {
			s.Phase = domain.PhaseAuthenticated
		} else {
			s.Phase = domain.PhaseUnauthenticated
		}
	}
	return s
}

// AuthStore owns the authenticated-session lifecycle. It is the foundation
// the data store and the access deriver observe, and it depends on neither.
type AuthStore struct {
	store  *Store[domain.Session]
	api    ports.AuthAPI
	kv     ports.KVStore
	log    zerolog.Logger
	flight singleflight.Group
	now    func() time.Time

	// mu serializes session writes against clear. epoch is bumped by every
	// login and every clear; a response is committed only while the epoch it
	// started under is still current.
	mu    sync.Mutex
	epoch uint64
}

// NewAuthStore returns an AuthStore in the uninitialized phase.
func NewAuthStore(api ports.AuthAPI, kv ports.KVStore, log zerolog.Logger) *AuthStore {
	return &AuthStore{
		store: NewStore(InitialSession(), authReducer),
		api:   api,
		kv:    kv,
		log:   log.With().Str("store", "auth").Logger(),
		now:   time.Now,
	}
}

// State returns the current session snapshot.
func (s *AuthStore) State() domain.Session { return s.store.State() }

// Subscribe observes session transitions.
func (s *AuthStore) Subscribe(l Listener[domain.Session]) func() { return s.store.Subscribe(l) }

// RestoreSession loads the persisted token and user. Any failure, including
// an expired token, degrades to the unauthenticated state.
func (s *AuthStore) RestoreSession(ctx context.Context) {
	s.store.Dispatch(restoreStarted{})

	token := s.read(ctx, ports.KeyToken)
	raw := s.read(ctx, ports.KeyUser)
	refresh := s.read(ctx, ports.KeyRefreshToken)

	if token == "" || raw == "" {
		s.store.Dispatch(restoreFinished{})
		return
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log.Warn().Err(err).Msg("persisted user is corrupt, discarding session")
		s.forget(ctx)
		s.store.Dispatch(restoreFinished{})
		return
	}
	if s.tokenExpired(token) {
		s.log.Info().Str("user_id", user.ID).Msg("persisted token expired")
		s.forget(ctx)
		s.store.Dispatch(restoreFinished{})
		return
	}

	s.store.Dispatch(restoreFinished{user: &user, token: token, refreshToken: refresh})
	s.log.Info().Str("user_id", user.ID).Msg("session restored")
}

// Login authenticates with email and password. Identical concurrent calls
// share one request and one Result.
func (s *AuthStore) Login(ctx context.Context, email, password string) ports.Result {
	in := ports.LoginInput{Email: NormalizeEmail(email), Password: password}
	if err := validateInput(in); err != nil {
		return ports.Fail(err)
	}

	v, _, _ := s.flight.Do("login:"+in.Email, func() (any, error) {
		return s.login(ctx, in), nil
	})
	return v.(ports.Result)
}

func (s *AuthStore) login(ctx context.Context, in ports.LoginInput) ports.Result {
	s.store.Dispatch(loginStarted{})

	payload, err := s.api.Login(ctx, in)
	if err == nil && (payload == nil || payload.Token == "" || payload.User == nil) {
		err = &domain.APIError{Message: "invalid login response"}
	}
	if err != nil {
		s.store.Dispatch(loginFailed{message: domain.Message(err)})
		s.log.Info().Err(err).Msg("login failed")
		return ports.Fail(err)
	}

	s.mu.Lock()
	s.epoch++
	s.persist(ctx, payload)
	s.store.Dispatch(loginSucceeded{payload: *payload})
	s.mu.Unlock()
	s.log.Info().Str("user_id", payload.User.ID).Msg("logged in")
	return ports.OK("login successful")
}

// Register creates an account. It never authenticates the session: the
// backend asks the user to verify their email first.
func (s *AuthStore) Register(ctx context.Context, in ports.RegisterInput) ports.Result {
	in.Email = NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return ports.Fail(err)
	}

	v, _, _ := s.flight.Do("register:"+in.Email, func() (any, error) {
		msg, err := s.api.Register(ctx, in)
		if err != nil {
			s.log.Info().Err(err).Msg("registration failed")
			return ports.Fail(err), nil
		}
		if msg == "" {
			msg = "registration successful, please check your email to verify your account"
		}
		return ports.OK(msg), nil
	})
	return v.(ports.Result)
}

// Logout always succeeds locally. The remote call is best-effort and its
// failure is only logged; persisted session keys are removed and the state
// returns to its initial shape either way.
func (s *AuthStore) Logout(ctx context.Context) ports.Result {
	v, _, _ := s.flight.Do("logout", func() (any, error) {
		token := s.store.State().Token
		s.store.Dispatch(logoutStarted{})

		if token != "" {
			if err := s.api.Logout(ctx, token); err != nil {
				s.log.Warn().Err(err).Msg("remote logout failed, clearing local session anyway")
			}
		}
		s.clear(ctx)
		s.log.Info().Msg("logged out")
		return ports.OK("logged out"), nil
	})
	return v.(ports.Result)
}

// UpdateProfile applies a partial profile change. On failure the session is
// left untouched and the error is returned in the Result.
func (s *AuthStore) UpdateProfile(ctx context.Context, in ports.ProfileUpdate) ports.Result {
	st, epoch := s.snapshot()
	if !st.IsAuthenticated {
		return ports.Fail(domain.ErrNotAuthenticated)
	}
	if err := validateInput(in); err != nil {
		return ports.Fail(err)
	}

	v, _, _ := s.flight.Do(flightKey("profile", epoch, in), func() (any, error) {
		updated, err := s.api.UpdateProfile(ctx, st.Token, in)
		if err != nil {
			s.log.Info().Err(err).Msg("profile update failed")
			return ports.Fail(err), nil
		}
		applied := s.commitIf(epoch, func() {
			merged := mergeUser(s.store.State().User, updated)
			s.writeUser(ctx, merged)
			s.store.Dispatch(profileUpdated{user: merged})
		})
		if !applied {
			s.log.Info().Msg("session ended during profile update, result dropped")
			return ports.Fail(domain.ErrNotAuthenticated), nil
		}
		return ports.OK("profile updated"), nil
	})
	return v.(ports.Result)
}

// RefreshSession exchanges the refresh token for a new access token. A
// refresh the backend rejects ends the session; a transport failure keeps
// it.
func (s *AuthStore) RefreshSession(ctx context.Context) ports.Result {
	st, epoch := s.snapshot()
	if !st.IsAuthenticated || st.RefreshToken == "" {
		return ports.Fail(domain.ErrNotAuthenticated)
	}

	v, _, _ := s.flight.Do(fmt.Sprintf("refresh:%d", epoch), func() (any, error) {
		payload, err := s.api.Refresh(ctx, st.RefreshToken)
		if err == nil && (payload == nil || payload.Token == "") {
			err = &domain.APIError{Status: http.StatusUnauthorized, Message: "invalid refresh response"}
		}
		if err != nil {
			if rejected(err) {
				if s.commitIf(epoch, func() { s.endSession(ctx) }) {
					s.log.Info().Err(err).Msg("token refresh rejected, ending session")
				}
			} else {
				s.log.Warn().Err(err).Msg("token refresh failed")
			}
			return ports.Fail(err), nil
		}
		if payload.User == nil {
			payload.User = st.User
		}
		applied := s.commitIf(epoch, func() {
			s.persist(ctx, payload)
			s.store.Dispatch(tokenRefreshed{payload: *payload})
		})
		if !applied {
			s.log.Info().Msg("session ended during token refresh, result dropped")
			return ports.Fail(domain.ErrNotAuthenticated), nil
		}
		return ports.OK("session refreshed"), nil
	})
	return v.(ports.Result)
}

// ClearError drops the last failure message.
func (s *AuthStore) ClearError() { s.store.Dispatch(authErrorCleared{}) }

// clear removes the persisted session and resets the state. Storage is
// cleared even when the caller's context is already cancelled.
func (s *AuthStore) clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endSession(ctx)
}

// endSession must be called with mu held.
func (s *AuthStore) endSession(ctx context.Context) {
	s.epoch++
	s.forget(ctx)
	s.store.Dispatch(sessionCleared{})
}

// snapshot returns the session together with the epoch it belongs to.
func (s *AuthStore) snapshot() (domain.Session, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.State(), s.epoch
}

// commitIf runs write under mu unless a login or clear replaced the
// session since epoch was read. It reports whether write ran.
func (s *AuthStore) commitIf(epoch uint64, write func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	write()
	return true
}

func (s *AuthStore) forget(ctx context.Context) {
	if err := s.kv.MultiRemove(context.WithoutCancel(ctx), ports.SessionKeys...); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear persisted session")
	}
}

// persist writes the session before the state transition is dispatched.
// Storage failures are non-fatal.
func (s *AuthStore) persist(ctx context.Context, p *domain.AuthPayload) {
	if err := s.kv.Set(ctx, ports.KeyToken, p.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist token")
	}
	if p.RefreshToken != "" {
		if err := s.kv.Set(ctx, ports.KeyRefreshToken, p.RefreshToken); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist refresh token")
		}
	}
	s.writeUser(ctx, p.User)
}

func (s *AuthStore) writeUser(ctx context.Context, u *domain.User) {
	raw, err := json.Marshal(u)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode user")
		return
	}
	if err := s.kv.Set(ctx, ports.KeyUser, string(raw)); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist user")
	}
}

func (s *AuthStore) read(ctx context.Context, key string) string {
	v, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to read persisted value")
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// tokenExpired inspects the exp claim without verifying the signature; the
// backend remains the authority. Opaque tokens never expire locally.
func (s *AuthStore) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(s.now())
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mergeUser overlays the non-zero fields of next onto prev.
func mergeUser(prev, next *domain.User) *domain.User {
	if prev == nil {
		return next.Clone()
	}
	if next == nil {
		return prev.Clone()
	}
	m := *prev
	if next.ID != "" {
		m.ID = next.ID
	}
	if next.Email != "" {
		m.Email = next.Email
	}
	if next.Username != "" {
		m.Username = next.Username
	}
	if next.FirstName != "" {
		m.FirstName = next.FirstName
	}
	if next.LastName != "" {
		m.LastName = next.LastName
	}
	if next.Role != "" {
		m.Role = next.Role
	}
	if next.ProfilePicture != "" {
		m.ProfilePicture = next.ProfilePicture
	}
	if !next.CreatedAt.IsZero() {
		m.CreatedAt = next.CreatedAt
	}
	m.EmailVerified = next.EmailVerified
	return &m
}

func rejected(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated) || errors.Is(err, domain.ErrForbidden)
}

// flightKey builds a singleflight key from an operation and its arguments.
func flightKey(op string, args ...any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return op
	}
	return op + ":" + string(raw)
}
