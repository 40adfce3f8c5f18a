package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/canerconnect/terminflow/libs/config"
	"github.com/canerconnect/terminflow/libs/kafkax"
	"github.com/canerconnect/terminflow/services/booking-service/internal/notify"
)

type appConfig struct {
	Service  string
	Port     string
	GRPCPort string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int
	AutoMigrate bool

	KafkaBrokers []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RateLimit     int
	RateFailOpen  bool

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins    []string
	RequestTimeout time.Duration
	BodyLimit      int64

	PublicBaseURL string
	PhoneRegion   string
	NotifyTimeout time.Duration
	SMTP          notify.SMTPConfig
	SMSProvider   string
	SMSWebhookURL string
	SMSToken      string
	SMSSender     string
}

func loadConfig() (appConfig, error) {
	cfg := appConfig{
		Service:       config.String("SERVICE_NAME", "booking-service"),
		LogLevel:      config.String("LOG_LEVEL", "info"),
		KafkaBrokers:  kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		JWTSecret:     config.String("JWT_SECRET", ""),
		CORSOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
		PublicBaseURL: config.String("PUBLIC_BASE_URL", "http://localhost:3000"),
		PhoneRegion:   config.String("PHONE_REGION", "DE"),
		SMSProvider:   config.String("SMS_PROVIDER", "noop"),
		SMSWebhookURL: config.String("SMS_WEBHOOK_URL", ""),
		SMSToken:      config.String("SMS_WEBHOOK_TOKEN", ""),
		SMSSender:     config.String("SMS_SENDER_ID", ""),
		SMTP: notify.SMTPConfig{
			Host:     config.String("SMTP_HOST", ""),
			Username: config.String("SMTP_USER", ""),
			Password: config.String("SMTP_PASSWORD", ""),
			From:     config.String("SMTP_FROM", ""),
		},
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	cfg.Port, err = config.Port("PORT", "8083")
	collect(err)
	if raw := config.String("GRPC_PORT", ""); raw != "" {
		cfg.GRPCPort, err = config.Port("GRPC_PORT", "")
		collect(err)
	}
	cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL")
	collect(err)
	cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10)
	collect(err)
	cfg.AutoMigrate, err = config.Bool("DB_AUTO_MIGRATE", false)
	collect(err)
	cfg.RedisDB, err = config.Int("REDIS_DB", 0)
	collect(err)
	cfg.RateLimit, err = config.Int("RATE_LIMIT_PER_MINUTE", 60)
	collect(err)
	cfg.RateFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	collect(err)
	ttl, err := config.Int("JWT_TTL_MINUTES", 12*60)
	collect(err)
	cfg.JWTTTL = time.Duration(ttl) * time.Minute
	cfg.RequestTimeout, err = config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)
	collect(err)
	limit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10)
	collect(err)
	cfg.BodyLimit = int64(limit)
	cfg.NotifyTimeout, err = config.Seconds("NOTIFY_TIMEOUT_SECONDS", 15*time.Second)
	collect(err)
	cfg.SMTP.Port, err = config.Int("SMTP_PORT", 587)
	collect(err)

	switch cfg.SMSProvider {
	case "noop", "":
	case "webhook":
		if cfg.SMSWebhookURL == "" {
			errs = append(errs, errors.New("SMS_WEBHOOK_URL is required when SMS_PROVIDER=webhook"))
		}
	default:
		errs = append(errs, fmt.Errorf("SMS_PROVIDER must be noop or webhook (got %q)", cfg.SMSProvider))
	}
	if cfg.DBMaxConns < 1 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	return cfg, errors.Join(errs...)
}
