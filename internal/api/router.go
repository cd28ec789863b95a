package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/api/handler"
	"github.com/innerpath/client-core/internal/api/middleware"
	"github.com/innerpath/client-core/internal/core/domain"
)

// Deps are the containers the control API drives.
type Deps struct {
	Session     handler.SessionService
	Data        handler.DataService
	Email       handler.EmailService
	Preferences handler.PreferencesService
	Admin       handler.AdminService
	Access      func() *domain.Access
	Checks      map[string]handler.Check

	// Secret signs operator tokens for the /v1 routes.
	Secret string
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// Per-router registry so HTTP metrics never collide across instances.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "control",
		Registerer: reg,
	}))

	// --- Health checks and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, reg},
	}))

	v1 := e.Group("/v1", middleware.Auth(d.Secret))

	// --- Session ---
	authHandler := handler.NewAuthHandler(d.Session)
	v1.GET("/session", authHandler.Session)
	v1.POST("/session/login", authHandler.Login)
	v1.POST("/session/register", authHandler.Register)
	v1.POST("/session/logout", authHandler.Logout)
	v1.POST("/session/refresh", authHandler.Refresh)
	v1.PUT("/session/profile", authHandler.UpdateProfile)
	v1.DELETE("/session/error", authHandler.ClearError)

	// --- Access ---
	v1.GET("/access", handler.NewAccessHandler(d.Access).Access)

	// --- Domain data ---
	dataHandler := handler.NewDataHandler(d.Data)
	v1.GET("/data", dataHandler.Dataset)
	v1.POST("/data/reload", dataHandler.Reload)
	v1.POST("/data/statistics/refresh", dataHandler.RefreshStatistics)
	v1.POST("/journals", dataHandler.CreateJournal)
	v1.PUT("/journals/:id", dataHandler.UpdateJournal)
	v1.DELETE("/journals/:id", dataHandler.DeleteJournal)
	v1.POST("/goals", dataHandler.CreateGoal)
	v1.PUT("/goals/:id", dataHandler.UpdateGoal)
	v1.DELETE("/goals/:id", dataHandler.DeleteGoal)
	v1.POST("/posts", dataHandler.CreatePost)
	v1.PUT("/posts/:id", dataHandler.UpdatePost)
	v1.DELETE("/posts/:id", dataHandler.DeletePost)
	v1.POST("/posts/:id/like", dataHandler.LikePost)
	v1.POST("/posts/:id/comments", dataHandler.AddComment)

	// --- Email flows ---
	emailHandler := handler.NewEmailHandler(d.Email)
	v1.GET("/email", emailHandler.Status)
	v1.DELETE("/email", emailHandler.Reset)
	v1.POST("/email/verification", emailHandler.SendVerification)
	v1.POST("/email/password-reset", emailHandler.SendPasswordReset)
	v1.POST("/email/verify", emailHandler.Verify)
	v1.POST("/email/reset-password", emailHandler.ResetPassword)

	// --- Preferences ---
	prefsHandler := handler.NewPreferencesHandler(d.Preferences)
	v1.GET("/preferences", prefsHandler.Get)
	v1.PATCH("/preferences", prefsHandler.Patch)
	v1.POST("/preferences/dark-mode/toggle", prefsHandler.ToggleDarkMode)

	// --- Admin (requires canManageUsers on the signed-in session) ---
	adminHandler := handler.NewAdminHandler(d.Admin)
	signedIn := func() bool { return d.Session.State().IsAuthenticated }
	admin := v1.Group("/admin", middleware.RBAC(d.Access, signedIn, domain.CanManageUsers))
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.POST("/users/:id/disable", adminHandler.DisableUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)

	return e
}

// requestLogger logs one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("control request")
			return nil
		},
	})
}
