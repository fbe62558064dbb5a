package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"epguest/internal/app/basicauth"
	"epguest/internal/app/db"
	"epguest/internal/app/hooks"
	"epguest/internal/app/pad"
	"epguest/internal/app/session"
	"epguest/internal/app/user"
	"epguest/internal/configs"
	"epguest/internal/guest"
	"epguest/internal/handler"
	"epguest/internal/metrics"
	"epguest/internal/pkg/limiter"
	"epguest/internal/pkg/logx"
)

const sessionJanitorInterval = 10 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pad server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := configs.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Bool("require_authentication", cfg.RequireAuthentication).
		Str("session_store", cfg.Session.Store).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		promReg *prometheus.Registry
		m       *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(promReg)
	}

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := hooks.NewRegistry(m)
	for _, p := range []hooks.Plugin{basicauth.New(), guest.New(m)} {
		if err := reg.Install(p); err != nil {
			return err
		}
	}
	if err := reg.LoadSettings(pluginSettings(cfg)); err != nil {
		logx.Error(err, "Plugin settings rejected. The affected plugins stay disabled.")
	}
	logx.Info("Plugins installed.", "authenticators", reg.AuthenticatorNames())

	sessions := session.NewManager(store, session.Config{
		CookieName: cfg.Session.CookieName,
		Secret:     cfg.Session.Secret,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	}, func(username string) *user.User {
		return reg.Settings().Users.Lookup(username)
	})

	pads := pad.NewManager(cfg.Pad.MaxClients, m)

	deps := &handler.AppDeps{
		Config:        cfg,
		Registry:      reg,
		Sessions:      sessions,
		Pads:          pads,
		Metrics:       m,
		AuthLimiter:   limiter.NewIPRateLimiter(ctx, rate.Limit(cfg.RateLimit.AuthRate), cfg.RateLimit.AuthBurst),
		SocketLimiter: limiter.NewIPRateLimiter(ctx, rate.Limit(cfg.RateLimit.SocketRate), cfg.RateLimit.SocketBurst),
	}
	if promReg != nil {
		deps.Gatherer = promReg
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go reloadOnHangup(ctx, reg)

	serverErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Pad server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case err := <-serverErr:
		pads.Shutdown()
		return fmt.Errorf("server failed to start: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	pads.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}

// pluginSettings builds the hook settings from cfg. Each call creates a fresh
// user registry, so a reload never keeps accounts that were removed.
func pluginSettings(cfg *configs.AppConfig) *hooks.Settings {
	return &hooks.Settings{
		RequireAuthentication: cfg.RequireAuthentication,
		Title:                 cfg.Title,
		Users:                 user.NewRegistry(cfg.UserRecords()),
		Plugins:               cfg.Plugins,
	}
}

// reloadOnHangup re-reads the settings file on SIGHUP and runs every settings
// hook again. Listener, session and rate limit settings need a restart.
func reloadOnHangup(ctx context.Context, reg *hooks.Registry) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := configs.LoadConfig(cfgFile)
			if err != nil {
				logx.Error(err, "Settings reload failed. Keeping the current settings.")
				continue
			}
			if err := reg.LoadSettings(pluginSettings(cfg)); err != nil {
				logx.Error(err, "Plugin settings rejected on reload. The affected plugins are disabled.")
				continue
			}
			logx.Info("Settings reloaded.", "users", len(cfg.Users), "require_authentication", cfg.RequireAuthentication)
		}
	}
}

// openSessionStore returns the configured session store and a function that
// releases it. Expired sessions are swept in the background until ctx is done.
func openSessionStore(ctx context.Context, cfg *configs.AppConfig) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, true)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session database: %w", err)
		}
		logx.Info("Session database connected and migrated.")

		store := session.NewPostgresStore(pool)
		go store.RunJanitor(ctx, sessionJanitorInterval, func(err error) {
			if db.IsUndefinedTable(err) {
				logx.Warn("Sessions table is missing. Run the migrate command.")
				return
			}
			logx.Error(err, "Failed to delete expired sessions")
		})
		return store, pool.Close, nil

	default:
		store := session.NewMemoryStore()
		go store.RunJanitor(ctx, sessionJanitorInterval)
		return store, func() {}, nil
	}
}
