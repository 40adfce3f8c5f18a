package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/canerconnect/terminflow/libs/auth"
	"github.com/canerconnect/terminflow/libs/config"
	"github.com/canerconnect/terminflow/libs/db"
	"github.com/canerconnect/terminflow/libs/grpcx"
	"github.com/canerconnect/terminflow/libs/httpx"
	"github.com/canerconnect/terminflow/libs/kafkax"
	otelx "github.com/canerconnect/terminflow/libs/otel"
	"github.com/canerconnect/terminflow/libs/runtime"
	"github.com/canerconnect/terminflow/services/booking-service/internal/booking"
	"github.com/canerconnect/terminflow/services/booking-service/internal/handlers"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
	"github.com/canerconnect/terminflow/services/booking-service/internal/outbox"
	"github.com/canerconnect/terminflow/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("booking service stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg appConfig, logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext(context.Background())
	defer stop()

	otelCfg, err := otelx.ConfigFromEnv(cfg.Service, version)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	events := outbox.NewRepository(pool)
	repo := storage.NewRepository(pool, events)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema applied")
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkax.NewWriter(cfg.KafkaBrokers)
		defer func() { _ = writer.Close() }()
		publisher := outbox.NewPublisher(events, writer, logger, outbox.PublisherConfig{})
		go publisher.Run(ctx)
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox events stay unpublished")
	}

	var limiter httpx.Limiter = httpx.NewMemoryRateLimiter(cfg.RateLimit, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RateLimit, time.Minute, cfg.Service)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	}

	svc := booking.NewService(repo, newNotifier(cfg, logger), logger, booking.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		PhoneRegion:   cfg.PhoneRegion,
		NotifyTimeout: cfg.NotifyTimeout,
	})

	var signer *auth.Signer
	if cfg.JWTSecret != "" {
		if signer, err = auth.NewSigner(cfg.JWTSecret, cfg.JWTTTL); err != nil {
			return err
		}
	} else {
		logger.Warn("JWT_SECRET not set; admin routes are disabled")
	}

	mux := runtime.NewBaseMux(checks...)
	var public httpx.Middleware
	if cfg.RateLimit > 0 {
		public = httpx.RateLimit(limiter, logger, cfg.RateFailOpen)
	}
	handlers.New(svc, signer, logger).Register(mux, public)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{AllowedOrigins: cfg.CORSOrigins}),
		httpx.WithBodyLimit(cfg.BodyLimit),
		httpx.WithTimeout(cfg.RequestTimeout),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(httpHandler, "booking"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if cfg.GRPCPort != "" {
		grpcSrv, health := grpcx.NewServer(logger)
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			logger.Info("grpc health server starting", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer func() {
			health.Shutdown()
			grpcSrv.GracefulStop()
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if err := svc.Drain(shutdownCtx); err != nil {
		logger.Warn("pending notifications dropped", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newNotifier(cfg appConfig, logger *slog.Logger) booking.Notifier {
	var email notify.EmailSender
	if cfg.SMTP.Host != "" {
		email = notify.NewSMTPSender(cfg.SMTP)
	} else {
		logger.Warn("SMTP_HOST not set; email notifications are disabled")
	}
	var sms notify.SMSSender = notify.NoopSender{}
	if cfg.SMSProvider == "webhook" {
		sms = notify.NewWebhookSender(notify.SMSWebhookConfig{
			URL:    cfg.SMSWebhookURL,
			Token:  cfg.SMSToken,
			Sender: cfg.SMSSender,
		})
	}
	return notify.NewDispatcher(email, sms)
}
