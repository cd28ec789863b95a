// Package app is the composition root of the innerpath daemon: it opens the
// configured KV backend and wires the containers, the API client, the task
// dispatcher and the control API together.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/innerpath/client-core/internal/api"
	"github.com/innerpath/client-core/internal/api/handler"
	"github.com/innerpath/client-core/internal/api/metrics"
	"github.com/innerpath/client-core/internal/api/middleware"
	"github.com/innerpath/client-core/internal/core/domain"
	"github.com/innerpath/client-core/internal/core/ports"
	"github.com/innerpath/client-core/internal/core/service"
	"github.com/innerpath/client-core/internal/infrastructure/apiclient"
	"github.com/innerpath/client-core/internal/infrastructure/config"
	"github.com/innerpath/client-core/internal/infrastructure/db/memory"
	mongokv "github.com/innerpath/client-core/internal/infrastructure/db/mongo"
	rediskv "github.com/innerpath/client-core/internal/infrastructure/db/redis"
	sqlitekv "github.com/innerpath/client-core/internal/infrastructure/db/sqlite"
	"github.com/innerpath/client-core/internal/infrastructure/queue"
)

const (
	taskWorkers = 4
	taskTimeout = 30 * time.Second
)

// App holds the wired containers.
type App struct {
	Auth        *service.AuthStore
	Data        *service.DataStore
	Email       *service.EmailStore
	Preferences *service.PreferencesStore
	Access      *service.AccessDeriver
	Admin       *service.AdminService

	kv      ports.KVStore
	client  *apiclient.Client
	tasks   *queue.Dispatcher
	checks  map[string]handler.Check
	closers []func(context.Context) error
	secret  string
	log     zerolog.Logger

	unsubscribe func()
}

// New opens storage and wires every container. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		checks: make(map[string]handler.Check),
		secret: cfg.Control.Secret,
		log:    log,
	}

	kv, err := a.openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.kv = kv

	scheme := domain.ColorScheme(cfg.SystemTheme)
	a.Preferences = service.NewPreferencesStore(kv, scheme, log)

	a.client = apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
		DeviceID:  a.Preferences.DeviceID(ctx),
	}, log)
	backend := apiclient.NewAPI(a.client)
	a.checks["backend"] = a.pingBackend

	a.tasks = queue.NewDispatcher(taskWorkers, taskTimeout, log.With().Str("component", "dispatcher").Logger())

	a.Auth = service.NewAuthStore(backend, kv, log)
	a.Data = service.NewDataStore(a.Auth, backend, a.tasks, log)
	a.Email = service.NewEmailStore(backend, kv, service.RealTicker, log)
	a.Access = service.NewAccessDeriver(a.Auth)
	a.Admin = service.NewAdminService(a.Auth, backend, log)

	if a.secret == "" {
		a.secret = uuid.NewString()
		log.Warn().Msg("CONTROL_SECRET not set, using an ephemeral secret for this run")
	}
	return a, nil
}

// openStore connects the configured KV backend and registers its health
// check and closer.
func (a *App) openStore(ctx context.Context, cfg config.StoreConfig) (ports.KVStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewKVStore(), nil

	case config.BackendSQLite:
		db, err := sqlitekv.Connect(ctx, sqlitekv.Config{Path: cfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		kv := sqlitekv.NewKVStore(db)
		a.checks["store"] = kv.Ping
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		return kv, nil

	case config.BackendRedis:
		kv, err := rediskv.Open(ctx, rediskv.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Prefix: cfg.RedisPrefix})
		if err != nil {
			return nil, err
		}
		a.checks["store"] = kv.Ping
		a.closers = append(a.closers, func(context.Context) error { return kv.Close() })
		return kv, nil

	case config.BackendMongo:
		kv, err := mongokv.Open(ctx, mongokv.Options{URI: cfg.MongoURI, Database: cfg.MongoDB})
		if err != nil {
			return nil, err
		}
		a.checks["store"] = kv.Ping
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	}
	return nil, fmt.Errorf("app: unknown store backend %q", cfg.Backend)
}

// pingBackend treats any HTTP answer as reachable.
func (a *App) pingBackend(ctx context.Context) error {
	env := a.client.Request(ctx, "/health", ports.RequestOptions{})
	if env.Status == 0 {
		return errors.New(env.Message)
	}
	return nil
}

// Start launches the dispatcher and restores persisted state: preferences,
// the session (which triggers the initial data load) and email cooldowns.
func (a *App) Start(ctx context.Context) {
	a.tasks.Start(context.WithoutCancel(ctx))

	a.unsubscribe = a.Auth.Subscribe(func(_, next domain.Session) {
		if next.IsAuthenticated {
			metrics.SessionAuthenticated.Set(1)
		} else {
			metrics.SessionAuthenticated.Set(0)
		}
	})

	a.Preferences.Hydrate(ctx)
	a.Preferences.MarkLaunched(ctx)
	a.Auth.RestoreSession(ctx)
	a.Email.Restore(ctx)

	st := a.Auth.State()
	a.log.Info().
		Bool("authenticated", st.IsAuthenticated).
		Str("role", string(st.Role())).
		Msg("client state restored")
}

// Router builds the control API over the wired containers.
func (a *App) Router() *echo.Echo {
	return api.NewRouter(api.Deps{
		Session:     a.Auth,
		Data:        a.Data,
		Email:       a.Email,
		Preferences: a.Preferences,
		Admin:       a.Admin,
		Access:      a.Access.Current,
		Checks:      a.checks,
		Secret:      a.secret,
		Log:         a.log.With().Str("component", "control").Logger(),
	})
}

// OperatorToken signs a control API token valid for ttl.
func (a *App) OperatorToken(subject string, ttl time.Duration) (string, error) {
	return middleware.IssueToken(a.secret, subject, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
}

// Syncer adapts the auth and data stores for the sync scheduler.
func (a *App) Syncer() *Syncer { return &Syncer{auth: a.Auth, data: a.Data} }

// Close stops the containers, drains pending tasks and closes storage.
func (a *App) Close(ctx context.Context) error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Data.Close()
	a.Email.Close()
	a.tasks.Stop()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Syncer is the scheduler's view of the session and data containers.
type Syncer struct {
	auth *service.AuthStore
	data *service.DataStore
}

func (s *Syncer) Authenticated() bool { return s.auth.State().IsAuthenticated }

func (s *Syncer) RefreshSession(ctx context.Context) ports.Result { return s.auth.RefreshSession(ctx) }

func (s *Syncer) LoadAllData(ctx context.Context) ports.Result { return s.data.LoadAllData(ctx) }
