package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/exam-bank/backend/internal/auth"
	"github.com/ayush/exam-bank/backend/internal/config"
	"github.com/ayush/exam-bank/backend/internal/logging"
	"github.com/ayush/exam-bank/backend/internal/metrics"
	"github.com/ayush/exam-bank/backend/internal/server"
	"github.com/ayush/exam-bank/backend/internal/store"
)

type userStore interface {
	auth.UserStore
	server.Pinger
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// ── User store ───────────────────────────────────────────
	var users userStore
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory user store, accounts are lost on restart")
		users = store.NewMemoryStore()
	default:
		db, err := store.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer db.Close()
		if cfg.MigrateOnStart {
			if err := store.Migrate(ctx, db); err != nil {
				log.Fatalf("postgres migrate: %v", err)
			}
		}
		users = store.NewPostgresStore(db)
	}

	// ── Sessions & metrics ───────────────────────────────────
	sessions := auth.NewSessionStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, sessions.Len)

	// ── Password hashing ─────────────────────────────────────
	hasher, err := auth.NewHasher(cfg.PasswordHash, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("password hasher: %v", err)
	}

	opts := []auth.Option{auth.WithLogger(log), auth.WithMetrics(m)}

	// ── MongoDB audit trail (optional) ───────────────────────
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("mongo connect: %v", err)
		}
		defer mongoClient.Disconnect(ctx)
		opts = append(opts, auth.WithAudit(store.NewAuditStore(mongoClient.Database(cfg.MongoDB))))
		log.WithField("db", cfg.MongoDB).Info("auth audit trail enabled")
	}

	// ── Handlers ─────────────────────────────────────────────
	authService := auth.NewService(users, sessions, hasher, opts...)
	authHandler := auth.NewHandler(authService, auth.CookieOptions{
		Secure: cfg.CookieSecure,
	}, log)

	router := server.NewRouter(server.Deps{
		Auth:           authHandler,
		Sessions:       sessions,
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
		CSRF:           cfg.CSRFProtection,
		DB:             users,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Infof("Backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
