// internal/server/http_server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/enrollio/referral-backend/internal/cache"
	"github.com/enrollio/referral-backend/internal/config"
	"github.com/enrollio/referral-backend/internal/credential"
	"github.com/enrollio/referral-backend/internal/handler"
	"github.com/enrollio/referral-backend/internal/middleware"
	"github.com/enrollio/referral-backend/internal/repository"
	"github.com/enrollio/referral-backend/internal/service"

	_ "github.com/lib/pq"
)

const (
	tokenExpiry     = 1 * time.Hour
	refereeCacheTTL = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type AppServer struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	rdb    *redis.Client
	HTTP   *http.Server
}

func NewAppServer(cfg *config.Config, logger *zap.Logger) (*AppServer, error) {
	sugar := logger.Sugar()

	// PostgreSQL (via sqlx)
	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		sugar.Errorf("failed to connect to postgres: %v", err)
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	// Redis
	rd := cfg.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rd.Addr,
		Password: rd.Password,
		DB:       rd.DB,
	})
	if _, err := rdb.Ping(rdb.Context()).Result(); err != nil {
		sugar.Errorf("failed to ping redis: %v", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	creds := credential.NewManager([]byte(cfg.JWT.SigningKey), tokenExpiry)

	// Repository → Service → Handler
	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	refereeCache := cache.NewRefereeCache(rdb, refereeCacheTTL)
	svc := service.NewService(userRepo, referralRepo, purchaseRepo, creds, refereeCache, nil, sugar)
	h := handler.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(sugar))
	router.Mount("/", h.Routes(middleware.Authenticate(sugar, creds)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	sugar.Infof("AppServer initialized successfully")
	return &AppServer{
		cfg:    cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
		HTTP:   httpServer,
	}, nil
}

func (a *AppServer) Run() error {
	sugar := a.logger.Sugar()
	sugar.Infof("HTTP server listening on %s", a.HTTP.Addr)
	if err := a.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (a *AppServer) GracefulStop() {
	sugar := a.logger.Sugar()
	sugar.Info("Shutting down HTTP server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.HTTP.Shutdown(ctx); err != nil {
		sugar.Errorf("shutdown error: %v", err)
	}

	a.db.Close()
	a.rdb.Close()
	sugar.Info("Resources closed, server stopped")
}
