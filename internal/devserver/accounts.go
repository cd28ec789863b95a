package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/innerpath/client-core/internal/core/domain"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errEmailTaken         = errors.New("email already registered")
	errInvalidToken       = errors.New("invalid or expired token")
	errAccountDisabled    = errors.New("account disabled")
	errUserNotFound       = errors.New("user not found")
)

type account struct {
	user         domain.User
	passwordHash string
}

// accounts implements registration, login and the token lifecycle.
type accounts struct {
	mu        sync.RWMutex
	byID      map[string]*account
	byEmail   map[string]string
	refresh   map[string]string // refresh token -> user id
	revoked   map[string]time.Time
	verify    map[string]string // verification token -> user id
	reset     map[string]string // reset token -> user id
	lastToken map[string]string // "kind:email" -> last issued one-shot token

	jwtSecret string
	tokenTTL  time.Duration
	cost      int
	now       func() time.Time
}

func newAccounts(jwtSecret string, tokenTTL time.Duration, cost int) *accounts {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &accounts{
		byID:      make(map[string]*account),
		byEmail:   make(map[string]string),
		refresh:   make(map[string]string),
		revoked:   make(map[string]time.Time),
		verify:    make(map[string]string),
		reset:     make(map[string]string),
		lastToken: make(map[string]string),
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		cost:      cost,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (a *accounts) create(u domain.User, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.User{}, err
	}
	u.Email = normalizeEmail(u.Email)
	u.Role = domain.NormalizeRole(u.Role)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byEmail[u.Email]; ok {
		return domain.User{}, errEmailTaken
	}
	u.ID = uuid.NewString()
	u.CreatedAt = a.now()
	a.byID[u.ID] = &account{user: u, passwordHash: string(hash)}
	a.byEmail[u.Email] = u.ID
	return u, nil
}

func (a *accounts) login(email, password string) (string, string, domain.User, error) {
	a.mu.RLock()
	acc, ok := a.byID[a.byEmail[normalizeEmail(email)]]
	a.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		return "", "", domain.User{}, errInvalidCredentials
	}
	if acc.user.Disabled {
		return "", "", domain.User{}, errAccountDisabled
	}
	return a.issue(acc.user)
}

// issue signs an access token and records a fresh refresh token.
func (a *accounts) issue(u domain.User) (string, string, domain.User, error) {
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(a.now()),
		ExpiresAt: jwt.NewNumericDate(a.now().Add(a.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.jwtSecret))
	if err != nil {
		return "", "", domain.User{}, err
	}
	refresh := randomToken()

	a.mu.Lock()
	a.refresh[refresh] = u.ID
	a.mu.Unlock()
	return token, refresh, u, nil
}

// rotate exchanges a refresh token for a new pair; the old one is consumed.
func (a *accounts) rotate(refresh string) (string, string, domain.User, error) {
	a.mu.Lock()
	id, ok := a.refresh[refresh]
	delete(a.refresh, refresh)
	acc := a.byID[id]
	a.mu.Unlock()
	if !ok || acc == nil || acc.user.Disabled {
		return "", "", domain.User{}, errInvalidToken
	}
	return a.issue(acc.user)
}

// authenticate verifies an access token and returns its account.
func (a *accounts) authenticate(token string) (domain.User, error) {
	claims := jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(a.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid {
		return domain.User{}, errInvalidToken
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, gone := a.revoked[claims.ID]; gone {
		return domain.User{}, errInvalidToken
	}
	acc, ok := a.byID[claims.Subject]
	if !ok || acc.user.Disabled {
		return domain.User{}, errInvalidToken
	}
	return acc.user, nil
}

// revoke invalidates the access token and every refresh token of its user.
func (a *accounts) revoke(token string) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked[claims.ID] = a.now()
	for r, id := range a.refresh {
		if id == claims.Subject {
			delete(a.refresh, r)
		}
	}
}

// oneShot issues a verification or reset token for email. Unknown emails
// get no token and no error so callers cannot enumerate accounts.
func (a *accounts) oneShot(kind, email string) {
	email = normalizeEmail(email)
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.byEmail[email]
	if !ok {
		return
	}
	token := randomToken()
	if kind == "verify" {
		a.verify[token] = id
	} else {
		a.reset[token] = id
	}
	a.lastToken[kind+":"+email] = token
}

func (a *accounts) consumeVerify(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.verify[token]
	if !ok {
		return errInvalidToken
	}
	delete(a.verify, token)
	a.byID[id].user.EmailVerified = true
	return nil
}

func (a *accounts) consumeReset(token, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.reset[token]
	if !ok {
		return errInvalidToken
	}
	delete(a.reset, token)
	a.byID[id].passwordHash = string(hash)
	return nil
}

func (a *accounts) token(kind, email string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastToken[kind+":"+normalizeEmail(email)]
}

func (a *accounts) get(id string) (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acc, ok := a.byID[id]
	if !ok {
		return domain.User{}, false
	}
	return acc.user, true
}

// update applies fn to the stored user and returns the result.
func (a *accounts) update(id string, fn func(u *domain.User) error) (domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return domain.User{}, errUserNotFound
	}
	next := acc.user
	if err := fn(&next); err != nil {
		return domain.User{}, err
	}
	if next.Email != acc.user.Email {
		next.Email = normalizeEmail(next.Email)
		if other, taken := a.byEmail[next.Email]; taken && other != id {
			return domain.User{}, errEmailTaken
		}
		delete(a.byEmail, acc.user.Email)
		a.byEmail[next.Email] = id
	}
	acc.user = next
	return next, nil
}

func (a *accounts) setPassword(id, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.byID[id]; ok {
		acc.passwordHash = string(hash)
	}
	return nil
}

func (a *accounts) remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.byID[id]
	if !ok {
		return false
	}
	delete(a.byEmail, acc.user.Email)
	delete(a.byID, id)
	return true
}

func (a *accounts) list() []domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.User, 0, len(a.byID))
	for _, acc := range a.byID {
		out = append(out, acc.user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func randomToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
