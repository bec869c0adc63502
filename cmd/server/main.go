package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/carelink/backend/api/handler"
	"github.com/carelink/backend/internal/config"
	"github.com/carelink/backend/internal/infrastructure/buffer"
	"github.com/carelink/backend/internal/infrastructure/monitor"
	pgInfra "github.com/carelink/backend/internal/infrastructure/postgres"
	redisInfra "github.com/carelink/backend/internal/infrastructure/redis"
	"github.com/carelink/backend/internal/middleware"
	"github.com/carelink/backend/internal/router"
	"github.com/carelink/backend/internal/services"
	"github.com/carelink/backend/internal/services/lifecycle"
	"github.com/carelink/backend/pkg/httpcontext"
	"github.com/carelink/backend/pkg/logger"
	"github.com/carelink/backend/pkg/metrics"
	"github.com/carelink/backend/repository/postgres"
	redisRepo "github.com/carelink/backend/repository/redis"
	accountUC "github.com/carelink/backend/usecase/account"
	authUC "github.com/carelink/backend/usecase/auth"
	blogUC "github.com/carelink/backend/usecase/blog"
	donationUC "github.com/carelink/backend/usecase/donation"
	profileUC "github.com/carelink/backend/usecase/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	defer func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			zapLogger.Error("graceful shutdown error", zap.Error(err))
		}
	}()

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path)
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.Register("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(bufferStore, 10*time.Second, zapLogger,
		monitor.PostgresDependency(pool),
		monitor.RedisDependency(redisClient),
	)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	appMetrics := metrics.New("carelink")

	userRepo := postgres.NewUserRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	postRepo := postgres.NewPostRepository(pool)
	donationRepo := postgres.NewDonationRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.TokenTTL)

	bufferProcessor, err := services.NewBufferProcessor(
		bufferStore,
		mon,
		services.Repositories{
			Profiles:  profileRepo,
			Posts:     postRepo,
			Donations: donationRepo,
		},
		appMetrics,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  cfg.Buffer.BatchSize,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  cfg.Buffer.Retention,
		},
	)
	if err != nil {
		zapLogger.Fatal("buffer processor setup failed", zap.Error(err))
	}
	bufferProcessor.Start()
	manager.Register("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	bufferBridge := services.NewBufferBridge(bufferProcessor)

	tokens := authUC.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TokenTTL)
	authUseCase := authUC.New(userRepo, sessionRepo, tokens, zapLogger)
	if cfg.Admin.Email != "" {
		if _, err := authUseCase.EnsureAdmin(appCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName); err != nil {
			zapLogger.Fatal("admin bootstrap failed", zap.Error(err))
		}
	}

	accountUseCase := accountUC.New(userRepo, sessionRepo, zapLogger)
	profileUseCase := profileUC.New(profileRepo, bufferBridge, zapLogger)
	blogUseCase := blogUC.New(postRepo, bufferBridge, zapLogger)
	donationUseCase := donationUC.New(donationRepo, userRepo, bufferBridge, zapLogger)

	trustedProxies, err := httpcontext.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		zapLogger.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout).WithTrustedProxies(trustedProxies)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Account:  apiHandler.NewAccountHandler(accountUseCase, ctxAdapter, zapLogger),
		Profile:  apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Post:     apiHandler.NewPostHandler(blogUseCase, ctxAdapter, zapLogger),
		Donation: apiHandler.NewDonationHandler(donationUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	loginLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst).
		WithTrustedProxies(trustedProxies)

	r := router.New(handlers, router.Options{
		Policies:      router.Policies(),
		Metrics:       appMetrics,
		ExposeMetrics: cfg.HTTP.EnableMetrics,
		LoginLimiter:  loginLimiter,
		Logger:        zapLogger,
	})

	handler := middleware.AccessLog(zapLogger)(
		middleware.ResolvePrincipal(authUseCase, ctxAdapter, zapLogger)(r.Handler),
	)

	server := &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(appCtx); err != nil {
		zapLogger.Error("stopping after component failure", zap.Error(err))
	}
}
