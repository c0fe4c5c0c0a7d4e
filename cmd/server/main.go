package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty/config"
	"loyalty/internal/database"
	"loyalty/internal/metrics"
	"loyalty/internal/middleware"
	"loyalty/internal/push"
	"loyalty/internal/repository"
	"loyalty/internal/router"
	"loyalty/internal/service"
	"loyalty/internal/ws"
	"loyalty/pkg/apns"
	"loyalty/pkg/cloudinary"
	"loyalty/pkg/logger"
	"loyalty/pkg/passkit"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDB(&cfg.Database, log, cfg.Log.Development)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	metrics.Register(prometheus.DefaultRegisterer)

	signer := passkit.NewSigner(cfg.PassKit.CertPath, cfg.PassKit.CertPassword, cfg.PassKit.WWDRCertPath, log)
	builder := passkit.NewBuilder(passkit.Config{
		PassTypeIdentifier: cfg.PassKit.PassTypeIdentifier,
		TeamIdentifier:     cfg.PassKit.TeamIdentifier,
		WebServiceURL:      cfg.PassKit.WebServiceURL,
		AssetDir:           cfg.PassKit.AssetDir,
	}, signer, log)

	apnsClient := apns.New(apns.Config{
		KeyPath:     cfg.APNs.KeyPath,
		KeyID:       cfg.APNs.KeyID,
		TeamID:      cfg.APNs.TeamID,
		Topic:       cfg.APNs.Topic,
		Environment: cfg.APNs.Environment,
		BaseURL:     cfg.APNs.BaseURL,
		Timeout:     cfg.APNs.Timeout,
	}, log)
	if !apnsClient.Configured() {
		log.Warn("APNs credentials incomplete, wallet push updates are disabled")
	}
	pushSvc := push.NewService(repository.NewRegistrationRepository(db), apnsClient, log)

	var (
		notifier    service.Notifier
		pool        *push.Pool
		queue       *push.Queue
		asynqClient *asynq.Client
		asynqServer *asynq.Server
	)
	if cfg.Redis.Addr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		asynqClient = asynq.NewClient(redisOpt)
		queue = push.NewQueue(asynqClient, cfg.Push.QueueSize, log)
		notifier = queue
		asynqServer = push.NewServer(redisOpt, cfg.Push.Workers, log)
		if err := asynqServer.Start(push.NewServeMux(pushSvc)); err != nil {
			log.Fatal("asynq server", zap.Error(err))
		}
		log.Info("wallet push via redis queue", zap.String("redis", cfg.Redis.Addr))
	} else {
		pool = push.NewPool(pushSvc, cfg.Push.Workers, cfg.Push.QueueSize, log)
		notifier = pool
	}

	var logos cloudinary.Uploader
	if cfg.Cloudinary.Enabled() {
		logos, err = cloudinary.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
		if err != nil {
			log.Fatal("cloudinary", zap.Error(err))
		}
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(stopCleanup)

	engine := router.Setup(cfg, db, router.Deps{
		Builder:  builder,
		Notifier: notifier,
		Hub:      ws.NewHub(),
		Logos:    logos,
		Limiter:  limiter,
		Log:      log,
	})

	var handler http.Handler = engine
	if len(cfg.Server.CORSOrigins) > 0 {
		handler = gorillahandlers.CORS(
			gorillahandlers.AllowedOrigins(cfg.Server.CORSOrigins),
			gorillahandlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", middleware.StationTokenHeader}),
			gorillahandlers.AllowCredentials(),
		)(engine)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("signed_passes", signer.Signed()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	close(stopCleanup)
	if pool != nil {
		pool.Stop()
	}
	if queue != nil {
		queue.Wait()
	}
	if asynqServer != nil {
		asynqServer.Shutdown()
	}
	if asynqClient != nil {
		_ = asynqClient.Close()
	}
	log.Info("server stopped")
}
