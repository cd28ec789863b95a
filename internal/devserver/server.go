// Package devserver is an in-memory implementation of the innerpath REST
// backend. It answers with the {success, data, message} envelope the client
// consumes and is used for local development and end-to-end tests.
package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/innerpath/client-core/internal/api/handler"
	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
	"github.com/innerpath/client-core/internal/core/service"
)

// SeedUser is an account created at startup.
type SeedUser struct {
	Email    string
	Password string
	Username string
	Role     domain.Role
}

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests use bcrypt.MinCost.
	BcryptCost int
	Seed       []SeedUser
	Log        zerolog.Logger
}

// Server is the reference backend.
type Server struct {
	echo     *echo.Echo
	accounts *accounts
	content  *content
	log      zerolog.Logger
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func New(opts Options) (*Server, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &Server{
		accounts: newAccounts(opts.JWTSecret, opts.TokenTTL, cost),
		log:      opts.Log.With().Str("component", "devserver").Logger(),
	}
	s.content = newContent(s.accounts.now)

	for _, u := range opts.Seed {
		created, err := s.accounts.create(domain.User{
			Email:         u.Email,
			Username:      u.Username,
			Role:          u.Role,
			EmailVerified: true,
		}, u.Password)
		if err != nil {
			return nil, err
		}
		s.log.Info().Str("email", created.Email).Str("role", string(created.Role)).Msg("seeded account")
	}

	s.echo = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler { return s.echo }

// Echo exposes the underlying instance for Start/Shutdown.
func (s *Server) Echo() *echo.Echo { return s.echo }

// VerificationToken returns the last verification token mailed to email.
func (s *Server) VerificationToken(email string) string { return s.accounts.token("verify", email) }

// ResetToken returns the last password reset token mailed to email.
func (s *Server) ResetToken(email string) string { return s.accounts.token("reset", email) }

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = s.errorHandler

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error { return ok(c, http.StatusOK, nil, "ok") })
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/refresh", s.refresh)
	api.POST("/auth/resend-verification", s.sendVerification)
	api.POST("/auth/forgot-password", s.forgotPassword)
	api.POST("/auth/verify-email", s.verifyEmail)
	api.POST("/auth/reset-password", s.resetPassword)

	authed := api.Group("", s.requireUser)
	authed.POST("/auth/logout", s.logout)
	authed.PUT("/auth/profile", s.updateProfile)

	authed.GET("/journals", s.listJournals)
	authed.POST("/journals", s.createJournal)
	authed.PUT("/journals/:id", s.updateJournal)
	authed.DELETE("/journals/:id", s.deleteJournal)

	authed.GET("/goals", s.listGoals)
	authed.POST("/goals", s.createGoal)
	authed.PUT("/goals/:id", s.updateGoal)
	authed.DELETE("/goals/:id", s.deleteGoal)

	authed.GET("/posts", s.listPosts)
	authed.POST("/posts", s.createPost)
	authed.PUT("/posts/:id", s.updatePost)
	authed.DELETE("/posts/:id", s.deletePost)
	authed.POST("/posts/:id/like", s.likePost)
	authed.POST("/posts/:id/comments", s.addComment)

	authed.GET("/achievements", s.listAchievements)
	authed.GET("/statistics", s.statistics)

	admin := authed.Group("/admin", s.requireCapability(domain.CanManageUsers))
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.PUT("/users/:id", s.updateUser)
	admin.POST("/users/:id/disable", s.disableUser)
	admin.DELETE("/users/:id", s.deleteUser)

	return e
}

func ok(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: msg})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Message: msg})
}

// errorHandler renders every error in the envelope shape.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		_ = fail(c, http.StatusBadRequest, ve.Msg)
	case errors.As(err, &he):
		msg, _ := he.Message.(string)
		if msg == "" {
			msg = http.StatusText(he.Code)
		}
		_ = fail(c, he.Code, msg)
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		_ = fail(c, http.StatusInternalServerError, "internal server error")
	}
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

func currentUser(c echo.Context) domain.User {
	u, _ := c.Get("user").(domain.User)
	return u
}

func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return fail(c, http.StatusUnauthorized, "authentication required")
		}
		u, err := s.accounts.authenticate(token)
		if err != nil {
			return fail(c, http.StatusUnauthorized, err.Error())
		}
		c.Set("user", u)
		c.Set("token", token)
		return next(c)
	}
}

func (s *Server) requireCapability(capability domain.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !service.DeriveAccess(currentUser(c).Role).Can(capability) {
				return fail(c, http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// ── Auth ──────────────────────────────────────────────────────────────────────

type authData struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         domain.User `json:"user"`
}

func (s *Server) register(c echo.Context) error {
	var req ports.RegisterInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	u, err := s.accounts.create(domain.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleUser,
	}, req.Password)
	if errors.Is(err, errEmailTaken) {
		return fail(c, http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	s.accounts.oneShot("verify", u.Email)
	return ok(c, http.StatusCreated, u, "registration successful, please check your email to verify your account")
}

func (s *Server) login(c echo.Context) error {
	var req ports.LoginInput
	if err := bindValid(c, &req); err != nil {
		return err
	}
	token, refresh, u, err := s.accounts.login(req.Email, req.Password)
	switch {
	case errors.Is(err, errInvalidCredentials):
		return fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errAccountDisabled):
		return fail(c, http.StatusForbidden, err.Error())
	case err != nil:
		return err
	}
	return ok(c, http.StatusOK, authData{Token: token, RefreshToken: refresh, User: u}, "login successful")
}

func (s *Server) refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := bindValid(c, &req); err != nil {
		return err
	}
	token, refresh, u, err := s.accounts.rotate(req.RefreshToken)
	if err != nil {
		return fail(c, http.StatusUnauthorized, err.Error())
	}
	return ok(c, http.StatusOK, authData{Token: token, RefreshToken: refresh, User: u}, "")
}

func (s *Server) logout(c echo.Context) error {
	token, _ := c.Get("token").(string)
	s.accounts.revoke(token)
	return ok(c, http.StatusOK, nil, "logged out")
}

func (s *Server) updateProfile(c echo.Context) error {
	var req ports.ProfileUpdate
	if err := bindValid(c, &req); err != nil {
		return err
	}
	u, err := s.accounts.update(currentUser(c).ID, func(u *domain.User) error {
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
		}
		if req.Username != nil {
			u.Username = *req.Username
		}
		if req.ProfilePicture != nil {
			u.ProfilePicture = *req.ProfilePicture
		}
		return nil
	})
	if err != nil {
		return fail(c, http.StatusNotFound, err.Error())
	}
	return ok(c, http.StatusOK, u, "profile updated")
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) sendVerification(c echo.Context) error {
	var req emailRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	s.accounts.oneShot("verify", req.Email)
	return ok(c, http.StatusOK, nil, "verification email sent")
}

func (s *Server) forgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	s.accounts.oneShot("reset", req.Email)
	return ok(c, http.StatusOK, nil, "password reset email sent")
}

func (s *Server) verifyEmail(c echo.Context) error {
	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := s.accounts.consumeVerify(req.Token); err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}
	return ok(c, http.StatusOK, nil, "email verified")
}

func (s *Server) resetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"    validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := s.accounts.consumeReset(req.Token, req.Password); err != nil {
		if errors.Is(err, errInvalidToken) {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return err
	}
	return ok(c, http.StatusOK, nil, "password reset")
}
