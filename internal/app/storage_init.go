package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
	"github.com/vladislavdragonenkov/ecom/internal/storage/postgres"
)

// runtimeDependencies — набор хранилищ, собранный под выбранный драйвер.
type runtimeDependencies struct {
	orders     domain.OrderRepository
	products   domain.ProductRepository
	stock      domain.StockLedger
	carts      domain.CartRepository
	outboxRepo domain.OutboxRepository
	reconStore domain.ReconciliationStore

	// pg не nil только для postgres-драйвера; используется для ping и закрытия.
	pg *postgres.Store
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d.pg == nil {
		return
	}
	if err := d.pg.Close(); err != nil {
		logger.WithError(err).Warn("failed to close postgres store")
	}
}

// initRuntimeDependencies собирает хранилища под выбранный драйвер.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		products := memory.NewProductRepository()
		orders := memory.NewOrderRepository()
		carts := memory.NewCartRepository()
		return &runtimeDependencies{
			orders:     orders,
			products:   products,
			stock:      products,
			carts:      carts,
			outboxRepo: memory.NewOutboxRepository(),
			reconStore: memory.NewReconciliationStore(orders, products, products, carts),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}

		products := postgres.NewProductRepository(store)
		return &runtimeDependencies{
			orders:     postgres.NewOrderRepository(store),
			products:   products,
			stock:      products,
			carts:      postgres.NewCartRepository(store),
			outboxRepo: postgres.NewOutboxRepository(store),
			reconStore: postgres.NewReconciliationStore(store),
			pg:         store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
