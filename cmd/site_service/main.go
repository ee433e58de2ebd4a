package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aradsms/sms_inbox_site/internal/platform/config"
	"github.com/aradsms/sms_inbox_site/internal/platform/database"
	"github.com/aradsms/sms_inbox_site/internal/platform/logger"
	"github.com/aradsms/sms_inbox_site/internal/platform/messagebroker"
	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/gist"
	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
	"github.com/aradsms/sms_inbox_site/internal/site_service/middleware"
	"github.com/aradsms/sms_inbox_site/internal/site_service/repository/memory"
	"github.com/aradsms/sms_inbox_site/internal/site_service/repository/postgres"
	"github.com/aradsms/sms_inbox_site/internal/site_service/repository/sqlite"
	httptransport "github.com/aradsms/sms_inbox_site/internal/site_service/transport/http"
)

const serviceName = "site_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
	appLogger.Info("Site service starting...", "port", cfg.ServerPort, "storage", cfg.StorageDriver)

	sessionKey, generatedKey, err := config.SessionKey(cfg.SessionSecret)
	if err != nil {
		appLogger.Error("Refusing to start with an unsafe session secret", "error", err)
		os.Exit(1)
	}
	if generatedKey {
		appLogger.Warn("APP_SESSION_SECRET is not set; using a random key, admin sessions end on restart and are not shared between instances")
	}

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	kv, closeStore, err := openStore(mainCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open settings storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	store := app.NewSettingsStore(kv, appLogger)
	initial, err := store.Load(mainCtx)
	if err != nil {
		appLogger.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}
	snapshot := app.NewSettingsSnapshot(initial)
	store.Subscribe(snapshot)

	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Error("Failed to connect to NATS, settings changes stay local", "error", err)
		} else {
			defer natsClient.Close()
			broadcaster := app.NewSettingsBroadcaster(store, natsClient, cfg.SettingsNATSSubject, appLogger)
			store.Subscribe(broadcaster)
			unsubscribe, err := broadcaster.Listen(mainCtx, natsClient)
			if err != nil {
				appLogger.Error("Failed to subscribe to settings changes", "subject", cfg.SettingsNATSSubject, "error", err)
			} else {
				defer func() { _ = unsubscribe() }()
				appLogger.Info("Settings changes are broadcast over NATS", "subject", cfg.SettingsNATSSubject)
			}
		}
	} else {
		appLogger.Info("NATS URL not configured, settings changes stay local.")
	}

	httpClient := &http.Client{Timeout: cfg.ProvidersTimeout}
	providerClient := provider.NewClient(appLogger, cfg.ProvidersCORSProxyURL, httpClient)
	twilio := provider.NewTwilio(appLogger, providerClient, snapshot, cfg.TwilioBaseURL, cfg.ProvidersActivityLimit)
	signalWire := provider.NewSignalWire(appLogger, providerClient, snapshot, cfg.ProvidersActivityLimit)
	providers := []provider.NumberSource{twilio, signalWire}

	services := httptransport.Services{
		Store:    store,
		Snapshot: snapshot,
		Auth: app.NewAuthGate(store, app.AuthGateConfig{
			LoginDelay:        cfg.LoginDelay,
			RememberFor:       time.Duration(cfg.SessionRememberDays) * 24 * time.Hour,
			AttemptsPerMinute: cfg.LoginRatePerMinute,
		}, appLogger),
		Numbers:   app.NewNumberService(store, providers, appLogger),
		Inbox:     app.NewInboxService(snapshot, providers, twilio, appLogger),
		Content:   app.NewContentService(store, appLogger),
		Sync:      app.NewSettingsSync(store, gist.NewClient(appLogger, cfg.GistAPIBaseURL, nil), appLogger),
		Editors:   app.NewEditorSessions(cfg.EditorSessionTTL, cfg.EditorMaxSessions, appLogger),
		Providers: providers,
	}
	router, err := httptransport.NewRouter(services, httptransport.RouterConfig{
		Cookies: middleware.CookieConfig{
			Secret:      sessionKey,
			Secure:      cfg.SecureCookies,
			VolatileTTL: cfg.SessionVolatileTTL,
		},
		RefreshInterval: cfg.InboxRefreshInterval,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to build router", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		stopSignal := make(chan os.Signal, 1)
		signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of HTTP server...")
		ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(ctxShutdown); err != nil {
			appLogger.Error("HTTP server shutdown failed", "error", err)
			return err
		}
		appLogger.Info("HTTP server shut down gracefully.")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Service group encountered an error", "error", err)
	}
	appLogger.Info("Service shutdown complete.")
}

// openStore connects the configured settings storage driver.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.KeyValueStore, func(), error) {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("Using in-memory settings storage; changes are lost on restart")
		return memory.NewKeyValueStore(), func() {}, nil
	case "sqlite", "":
		db, err := database.NewSqliteDB(ctx, cfg.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		kv := sqlite.NewSqliteKeyValueStore(db, log)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return kv, func() { db.Close() }, nil
	case "postgres":
		pool, err := database.NewDBPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		kv := postgres.NewPgKeyValueStore(pool, log)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
