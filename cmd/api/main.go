package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"notes-otp/internal/config"
	"notes-otp/internal/db"
	"notes-otp/internal/email"
	apihttp "notes-otp/internal/http"
	"notes-otp/internal/repository"
	"notes-otp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
		gin.SetMode(gin.ReleaseMode)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	userRepo := repository.NewPgUserRepository(pool)
	otpRepo := repository.NewPgOTPRepository(pool)
	noteRepo := repository.NewPgNoteRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.IsDevelopment() {
		emailSender = email.NewLogSender(logger)
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPOptions{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
			Timeout:  cfg.SMTPTimeout,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	otpLocker := service.NewMemoryOTPLocker()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process otp lock", zap.Error(err))
		} else {
			otpLocker = service.NewRedisOTPLocker(redisClient, 10*time.Second, 3*time.Second)
		}
		cancel()
	}

	otpSvc := service.NewOTPService(logger, otpRepo, otpLocker, service.OTPConfig{
		TTL:          cfg.OTPTTL,
		SweepOnIssue: cfg.OTPSweepOnIssue,
	})
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	authSvc := service.NewAuthService(logger, userRepo, otpSvc, emailSender)
	noteSvc := service.NewNoteService(noteRepo)

	sweeper := service.NewOTPSweeper(logger, otpRepo, cfg.OTPSweepInterval)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()

	authHandler := apihttp.NewAuthHandler(logger, authSvc, jwtSvc)
	noteHandler := apihttp.NewNoteHandler(logger, noteSvc)
	healthHandler := apihttp.NewHealthHandler(logger, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})
	router := apihttp.NewRouter(logger, apihttp.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, jwtSvc, authHandler, noteHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			logger.Error("server error", zap.Error(err))
		}
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	<-sweeperDone
	logger.Info("server stopped")
}
