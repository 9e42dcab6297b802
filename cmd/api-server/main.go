package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/app"
)

// Имена переменных окружения, переопределяющих конфигурацию.
const (
	envHTTPAddr    = "ECOM_HTTP_ADDR"
	envMetricsAddr = "ECOM_METRICS_ADDR"

	envStorageDriver       = "ECOM_STORAGE_DRIVER"
	envPostgresDSN         = "ECOM_POSTGRES_DSN"
	envPostgresAutoMigrate = "ECOM_POSTGRES_AUTO_MIGRATE"

	envGateway             = "ECOM_PAYMENT_GATEWAY"
	envCurrency            = "ECOM_CURRENCY"
	envClickPayProfileID   = "ECOM_CLICKPAY_PROFILE_ID"
	envClickPayServerKey   = "ECOM_CLICKPAY_SERVER_KEY"
	envClickPayBaseURL     = "ECOM_CLICKPAY_BASE_URL"
	envClickPayCallbackURL = "ECOM_CLICKPAY_CALLBACK_URL"
	envClickPayReturnURL   = "ECOM_CLICKPAY_RETURN_URL"

	envKafkaBrokers = "ECOM_KAFKA_BROKERS"

	envOutboxPollInterval = "ECOM_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize    = "ECOM_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts  = "ECOM_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay   = "ECOM_OUTBOX_RETRY_DELAY"

	envProductCacheTTL = "ECOM_PRODUCT_CACHE_TTL"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию из переменных окружения.
// Некорректные значения не прерывают запуск: поле остаётся со значением
// по умолчанию, а предупреждение возвращается вызывающему для логирования.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q is invalid: %v", key, value, err))
	}

	if v, ok := lookup(envHTTPAddr); ok && strings.TrimSpace(v) != "" {
		cfg.HTTPAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envPostgresDSN); ok && strings.TrimSpace(v) != "" {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	if v, ok := lookup(envGateway); ok && strings.TrimSpace(v) != "" {
		cfg.Gateway = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envCurrency); ok && strings.TrimSpace(v) != "" {
		cfg.Currency = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, ok := lookup(envClickPayProfileID); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envClickPayProfileID, v, err)
		} else {
			cfg.ClickPayProfileID = parsed
		}
	}
	if v, ok := lookup(envClickPayServerKey); ok {
		cfg.ClickPayServerKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(envClickPayBaseURL); ok {
		cfg.ClickPayBaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(envClickPayCallbackURL); ok {
		cfg.ClickPayCallbackURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(envClickPayReturnURL); ok {
		cfg.ClickPayReturnURL = strings.TrimSpace(v)
	}

	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = strings.TrimSpace(v)
	}

	if v, ok := lookup(envOutboxPollInterval); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxPollInterval, v, err)
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookup(envOutboxBatchSize); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxBatchSize, v, err)
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookup(envOutboxMaxAttempts); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxMaxAttempts, v, err)
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := lookup(envOutboxRetryDelay); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		if err != nil {
			warn(envOutboxRetryDelay, v, err)
		} else {
			cfg.OutboxRetryDelay = parsed
		}
	}

	if v, ok := lookup(envProductCacheTTL); ok {
		parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envProductCacheTTL, v, err)
		} else {
			cfg.ProductCacheTTL = parsed
		}
	}

	return cfg, warnings
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean value")
	}
}

func parseInt(value string, valid func(int) bool, constraint string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("expected integer value")
	}
	if !valid(parsed) {
		return 0, errors.New(constraint)
	}
	return parsed, nil
}

func parseDuration(value string, valid func(time.Duration) bool, constraint string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("expected duration value")
	}
	if !valid(parsed) {
		return 0, errors.New(constraint)
	}
	return parsed, nil
}

func main() {
	// .env удобен для локального запуска; в бою переменные задаёт окружение.
	_ = godotenv.Load()

	setupLogger()
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
		"gateway":      cfg.Gateway,
	}).Info("запускаем api-server")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("api-server остановлен")
}
