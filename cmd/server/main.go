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

	"credit-checkout/internal/config"
	"credit-checkout/internal/database"
	"credit-checkout/internal/domain"
	"credit-checkout/internal/handler"
	"credit-checkout/internal/infrastructure/payment"
	"credit-checkout/internal/ledger"
	"credit-checkout/internal/oplog"
	"credit-checkout/internal/service"
	"credit-checkout/internal/session"
	"credit-checkout/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/default.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if level := log.GetLevel(); level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openLedger(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open ledger")
	}
	defer store.Close()

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("open session store")
	}
	defer closeSessions()

	var (
		gateway payment.Gateway
		sandbox *payment.SandboxGateway
	)
	if cfg.GatewayBaseURL == config.SandboxGateway {
		sandbox = payment.NewSandboxGateway(cfg.SiteURL, handler.SandboxPayPath())
		gateway = sandbox
		log.Warn("using sandbox payment gateway")
	} else {
		gateway = payment.NewPaystackClient(cfg.GatewayBaseURL, cfg.GatewayTimeout, payment.WithLogger(log))
	}

	ops := oplog.New(log, store, "checkout")
	purchases := service.NewPurchaseService(domain.DefaultCatalog(), store, gateway, cfg.Secrets(), ops, cfg.ReferencePrefix)

	router := handler.NewRouter(handler.Deps{
		Purchases: purchases,
		Sessions:  sessions,
		SessionOptions: session.Options{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     cfg.SecureCookies,
		},
		Store:          store,
		Sandbox:        sandbox,
		SiteURL:        cfg.SiteURL,
		LoginURL:       cfg.LoginURL,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Log:            log,
	})

	sweeper := worker.NewPendingSweeper(store, cfg.PendingTTL, cfg.SweepInterval, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited")
	}
}

func openLedger(ctx context.Context, cfg config.Config, log *logrus.Logger) (ledger.Store, error) {
	if cfg.LedgerDriver == config.LedgerBolt {
		log.WithField("path", cfg.BoltPath).Info("using bolt ledger")
		return ledger.OpenBolt(cfg.BoltPath)
	}
	db, err := database.NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger.NewPostgres(db), nil
}

func openSessions(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.SessionBackend == config.SessionMemory {
		return session.NewMemoryStore(), func() {}, nil
	}
	client, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}
