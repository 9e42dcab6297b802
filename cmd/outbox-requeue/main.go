package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/storage/postgres"
)

const (
	defaultRequeueLimit = 100
	defaultMinAge       = time.Minute
)

type config struct {
	dsn       string
	limit     int
	execute   bool
	eventType string
	minAge    time.Duration
}

// failedRecord описывает одну запись outbox со статусом failed.
type failedRecord struct {
	ID           string
	AggregateID  string
	EventType    string
	AttemptCount int
	UpdatedAt    time.Time
}

type requeueStore interface {
	ListFailed(ctx context.Context, cfg config) ([]failedRecord, error)
	Requeue(ctx context.Context, ids []string) (int64, error)
	Close() error
}

var newRequeueStore = func(ctx context.Context, dsn string) (requeueStore, error) {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return &pgRequeueStore{store: store}, nil
}

type pgRequeueStore struct {
	store *postgres.Store
}

func (s *pgRequeueStore) ListFailed(ctx context.Context, cfg config) ([]failedRecord, error) {
	query := `
		SELECT id, aggregate_id, event_type, attempt_count, updated_at
		FROM outbox_messages
		WHERE status = 'failed' AND updated_at <= $1
	`
	args := []any{time.Now().UTC().Add(-cfg.minAge)}

	if cfg.eventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", len(args)+1)
		args = append(args, cfg.eventType)
	}
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d", len(args)+1)
	args = append(args, cfg.limit)

	rows, err := s.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list failed outbox messages: %w", err)
	}
	defer rows.Close()

	var records []failedRecord
	for rows.Next() {
		var record failedRecord
		if err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.EventType,
			&record.AttemptCount,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed outbox message: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed outbox rows: %w", err)
	}

	return records, nil
}

func (s *pgRequeueStore) Requeue(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for i, id := range ids {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}

	// Статус меняем только у всё ещё failed записей: параллельный воркер
	// или повторный запуск утилиты не перезапишут уже опубликованное.
	query := fmt.Sprintf(`
		UPDATE outbox_messages
		SET status = 'pending', updated_at = $1
		WHERE status = 'failed' AND id IN (%s)
	`, strings.Join(placeholders, ","))

	res, err := s.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("requeue outbox messages: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for requeue: %w", err)
	}
	return affected, nil
}

func (s *pgRequeueStore) Close() error {
	return s.store.Close()
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("outbox requeue failed: %v", err)
	}
}

func readConfig() (config, error) {
	var cfg config

	flag.StringVar(&cfg.dsn, "dsn", "", "PostgreSQL DSN (fallback: ECOM_POSTGRES_DSN)")
	flag.IntVar(&cfg.limit, "limit", defaultRequeueLimit, "max number of failed messages to requeue")
	flag.BoolVar(&cfg.execute, "execute", false, "execute requeue; default is dry-run")
	flag.StringVar(&cfg.eventType, "event-type", "", "optional event type filter (e.g. order.created)")
	flag.DurationVar(&cfg.minAge, "min-age", defaultMinAge, "only touch messages failed at least this long ago")
	flag.Parse()

	if strings.TrimSpace(cfg.dsn) == "" {
		cfg.dsn = os.Getenv("ECOM_POSTGRES_DSN")
	}
	cfg.dsn = strings.TrimSpace(cfg.dsn)
	cfg.eventType = strings.TrimSpace(cfg.eventType)

	if cfg.dsn == "" {
		return config{}, fmt.Errorf("postgres dsn is required (-dsn or ECOM_POSTGRES_DSN)")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.minAge < 0 {
		return config{}, fmt.Errorf("min-age must be >= 0")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"limit":      cfg.limit,
		"execute":    cfg.execute,
		"event_type": cfg.eventType,
		"min_age":    cfg.minAge.String(),
	}).Info("starting outbox requeue")

	store, err := newRequeueStore(ctx, cfg.dsn)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return runRequeue(ctx, cfg, store)
}

func runRequeue(ctx context.Context, cfg config, store requeueStore) error {
	records, err := store.ListFailed(ctx, cfg)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Info("no failed outbox messages matched the filter")
		return nil
	}

	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
		log.WithFields(log.Fields{
			"outbox_id":     record.ID,
			"aggregate_id":  record.AggregateID,
			"event_type":    record.EventType,
			"attempt_count": record.AttemptCount,
			"failed_at":     record.UpdatedAt.UTC().Format(time.RFC3339),
		}).Info("requeue candidate")
	}

	if !cfg.execute {
		log.WithField("candidates", len(ids)).Info("dry-run finished, pass -execute to requeue")
		return nil
	}

	requeued, err := store.Requeue(ctx, ids)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"candidates": len(ids),
		"requeued":   requeued,
	}).Info("outbox requeue finished")

	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
