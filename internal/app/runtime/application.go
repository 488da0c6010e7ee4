// Package runtime wires configuration, storage, services and the HTTP server
// into a running gateway.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/httpapi"
	"github.com/higher-endeavors/endeavors/internal/app/services/billing"
	"github.com/higher-endeavors/endeavors/internal/app/services/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/services/devices"
	"github.com/higher-endeavors/endeavors/internal/app/services/lifts"
	"github.com/higher-endeavors/endeavors/internal/app/services/settings"
	"github.com/higher-endeavors/endeavors/internal/app/services/training"
	"github.com/higher-endeavors/endeavors/internal/app/storage/postgres"
	"github.com/higher-endeavors/endeavors/internal/app/system"
	"github.com/higher-endeavors/endeavors/internal/auth"
	"github.com/higher-endeavors/endeavors/internal/cache"
	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/database"
	"github.com/higher-endeavors/endeavors/internal/integrations/cms"
	"github.com/higher-endeavors/endeavors/internal/integrations/email"
	"github.com/higher-endeavors/endeavors/internal/integrations/garmin"
	"github.com/higher-endeavors/endeavors/internal/integrations/httpclient"
	"github.com/higher-endeavors/endeavors/internal/integrations/strava"
	"github.com/higher-endeavors/endeavors/internal/integrations/stripe"
	"github.com/higher-endeavors/endeavors/internal/middleware"
	"github.com/higher-endeavors/endeavors/internal/scheduler"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

const (
	sessionCleanupSchedule = "@hourly"
	cacheSweepSchedule     = "@every 10m"
	limiterCleanupInterval = 5 * time.Minute
)

// Application wires core dependencies and manages the server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	pool       *database.Pool
	httpServer *http.Server
	services   []system.Service
	limiter    *middleware.RateLimiter
	deviceSync *scheduler.DeviceSync
	redis      *cache.Redis
}

// NewApplication opens the database and builds every component. A database
// that does not answer at startup is fatal.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("gateway")
	}
	pool, err := database.Open(ctx, cfg.Database, log.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app, err := build(ctx, cfg, log, pool)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	return app, nil
}

func build(ctx context.Context, cfg *config.Config, log *logger.Logger, pool *database.Pool) (*Application, error) {
	store := postgres.New(pool)
	app := &Application{cfg: cfg, log: log, pool: pool}

	secret, err := secretKeyMaterial(cfg.Auth.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SECRET: %w", err)
	}
	client := func(provider string) *httpclient.Client {
		return httpclient.New(httpclient.Config{Provider: provider, Logger: log.Named("httpclient")})
	}

	// Sign-in.
	manager, err := auth.NewManager(auth.ManagerConfig{
		Secret:     cfg.Auth.SessionSecret,
		TTL:        cfg.Auth.SessionTTL,
		CookieName: cfg.SessionCookieName(),
		Secure:     cfg.IsProduction(),
	}, store, store, log.Named("sessions"))
	if err != nil {
		return nil, err
	}
	var cognito *auth.Cognito
	if cfg.Auth.CognitoEnabled() {
		if cognito, err = auth.NewCognito(cfg.Auth, client("cognito")); err != nil {
			return nil, err
		}
	}
	var magic *auth.MagicLinks
	if cfg.SMTP.Host != "" {
		sender := email.NewSMTP(cfg.SMTP, log.Named("email"))
		if magic, err = auth.NewMagicLinks(cfg.Auth.SessionSecret, cfg.Auth.MagicLinkTTL, cfg.Server.BaseURL, sender); err != nil {
			return nil, err
		}
	}
	authenticator := auth.NewAuthenticator(store, manager, auth.NewAdminAllowlist(cfg.Auth.AdminEmails), cognito, magic, log.Named("auth"))
	if cognito == nil && magic == nil {
		log.Warn("no sign-in method configured")
	}

	// Devices. Unconfigured providers stay nil interfaces.
	var garminAPI devices.GarminAPI
	if cfg.Garmin.Enabled() {
		garminAPI = garmin.New(cfg.Garmin, client("garmin"), "")
	}
	var stravaAPI devices.StravaAPI
	if cfg.Strava.Enabled() {
		stravaAPI = strava.New(cfg.Strava, client("strava"), "")
	}
	deviceSvc, err := devices.New(store, garminAPI, stravaAPI, secret, log.Named("devices"))
	if err != nil {
		return nil, err
	}

	// Payments.
	var checkouts billing.Checkouts
	if cfg.Stripe.SecretKey != "" {
		checkouts = stripe.New(client("stripe"), cfg.Stripe.APIBase, cfg.Stripe.SecretKey, log.Named("stripe"))
	}
	billingSvc := billing.New(checkouts, store, store, billing.Config{
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		ReturnURL:      cfg.Server.BaseURL + "/api/stripe/return?session_id={CHECKOUT_SESSION_ID}",
	}, log.Named("billing"))

	// Content.
	sched := scheduler.New(log.Named("scheduler"))
	var contentCache cache.Cache
	if cfg.Redis.URL != "" {
		if app.redis, err = cache.NewRedis(ctx, cfg.Redis.URL, "endeavors:cms:"); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		contentCache = app.redis
	} else {
		mem := cache.NewMemory()
		contentCache = mem
		if err := sched.Add("cache-sweep", cacheSweepSchedule, func(context.Context) error {
			mem.Sweep()
			return nil
		}); err != nil {
			return nil, err
		}
	}
	cmsClient := cms.New(cfg.CMS.Endpoint, cfg.CMS.APISecret, client("cms"), contentCache, cfg.CMS.CacheTTL, log.Named("cms"))

	// Background jobs.
	app.deviceSync = scheduler.NewDeviceSync(deviceSvc, cfg.Sync.Concurrency, log.Named("device-sync"))
	if cfg.Sync.Enabled {
		if err := sched.Add("device-sync", cfg.Sync.Schedule, app.deviceSync.Job()); err != nil {
			return nil, err
		}
	}
	if err := sched.Add("session-cleanup", sessionCleanupSchedule, func(ctx context.Context) error {
		n, err := store.DeleteExpiredSessions(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			log.WithContext(ctx).WithField("sessions", n).Info("expired sessions removed")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	app.services = append(app.services, sched)

	app.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"))

	handler, err := httpapi.NewHandler(httpapi.Deps{
		Config:      cfg,
		Auth:        authenticator,
		Guard:       auth.NewGuard(manager, log.Named("guard")),
		Users:       store,
		Training:    training.New(store, store, store, log.Named("training")),
		Lifts:       lifts.New(store, log.Named("lifts")),
		Settings:    settings.New(store, deviceSvc, log.Named("settings")),
		BodyComp:    bodycomp.New(store, log.Named("bodycomp")),
		Devices:     deviceSvc,
		Billing:     billingSvc,
		CMS:         cmsClient,
		Audit:       store,
		Health:      pool,
		RateLimiter: app.limiter,
		Logger:      log.Named("http"),
	})
	if err != nil {
		return nil, err
	}

	app.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return app, nil
}

// Run starts background services and the HTTP server and blocks until ctx is
// cancelled or something fatal happens.
func (a *Application) Run(ctx context.Context) error {
	for _, svc := range a.services {
		if err := svc.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.pool.Watch(watchCtx, a.cfg.Database.HealthInterval, func(err error) {
		errCh <- fmt.Errorf("database unavailable: %w", err)
	})
	a.limiter.StartCleanup(watchCtx, limiterCleanupInterval)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// SyncOnce runs one device sync pass outside the schedule.
func (a *Application) SyncOnce(ctx context.Context) (scheduler.Summary, error) {
	return a.deviceSync.RunOnce(ctx)
}

// Shutdown stops the HTTP server, then background services in reverse
// order, then closes the pool.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	for i := len(a.services) - 1; i >= 0; i-- {
		if err := a.services[i].Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", a.services[i].Name(), err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return errors.Join(errs...)
}

// secretKeyMaterial accepts the app secret as hex, base64, or raw text.
// Encoded forms must decode to at least 32 bytes to be taken as encoded.
func secretKeyMaterial(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("missing secret")
	}

	// Hex digits are valid base64, so hex is tried first.
	if decoded, err := hex.DecodeString(value); err == nil && len(decoded) >= 32 {
		return decoded, nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) >= 32 {
		return decoded, nil
	}

	return []byte(value), nil
}
