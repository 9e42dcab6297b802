package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// poolLimits задаёт параметры пула соединений database/sql.
type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

var defaultPoolLimits = poolLimits{
	maxOpen:     25,
	maxIdle:     25,
	maxLifetime: 30 * time.Minute,
	maxIdleTime: 5 * time.Minute,
}

// Store оборачивает SQL-подключение к PostgreSQL и отдаёт его репозиториям.
type Store struct {
	db *sql.DB
}

// Open открывает пул соединений к PostgreSQL через pgx stdlib-драйвер
// и сразу проверяет базу пингом: приложение падает на старте, а не на
// первом запросе.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	limits := defaultPoolLimits
	db.SetMaxOpenConns(limits.maxOpen)
	db.SetMaxIdleConns(limits.maxIdle)
	db.SetConnMaxLifetime(limits.maxLifetime)
	db.SetConnMaxIdleTime(limits.maxIdleTime)

	if err := pingWithTimeout(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

func pingWithTimeout(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(pingCtx)
}

// DB возвращает raw SQL DB для низкоуровневого доступа (админ-утилиты, миграции).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность базы, используется health-чекером.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}
	return pingWithTimeout(ctx, s.db)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
