package app

import "time"

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// Gateway — имя активного платёжного шлюза в реестре (clickpay|mock).
	Gateway             string
	Currency            string
	ClickPayProfileID   int
	ClickPayServerKey   string
	ClickPayBaseURL     string
	ClickPayCallbackURL string
	ClickPayReturnURL   string

	// KafkaBrokers — список брокеров через запятую; пустой отключает публикацию событий.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	ProductCacheTTL time.Duration
}

// DefaultConfig возвращает конфигурацию для локальной разработки:
// in-memory хранилище и mock-шлюз, без Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		Gateway:             "mock",
		Currency:            "EGP",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		ProductCacheTTL:     5 * time.Minute,
	}
}
