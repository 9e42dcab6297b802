package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/cache"
	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/cart"
	"github.com/vladislavdragonenkov/ecom/internal/service/catalog"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

// Dependencies содержит собранные сервисы приложения.
type Dependencies struct {
	Catalog      *catalog.Service
	Cart         *cart.Service
	Orchestrator *checkout.Orchestrator
	Reconciler   *checkout.Reconciler
	Orders       domain.OrderRepository
	OutboxRepo   domain.OutboxRepository
	Logger       *log.Entry

	runtime *runtimeDependencies
}

// buildDependencies собирает сервисы поверх хранилищ и выбранного шлюза.
func buildDependencies(runtime *runtimeDependencies, gw domain.PaymentGateway, cfg Config, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	productCache := cache.NewProductCache(cfg.ProductCacheTTL)

	return &Dependencies{
		Catalog: catalog.NewService(runtime.products, productCache, logger.WithField("component", "catalog")),
		Cart:    cart.NewService(runtime.carts, runtime.products, runtime.stock, logger.WithField("component", "cart")),
		Orchestrator: checkout.NewOrchestrator(
			runtime.carts,
			runtime.products,
			runtime.stock,
			runtime.orders,
			runtime.outboxRepo,
			gw,
			cfg.Currency,
			logger.WithField("component", "checkout"),
		),
		Reconciler: checkout.NewReconciler(
			runtime.orders,
			runtime.reconStore,
			runtime.outboxRepo,
			gw,
			productCache,
			logger.WithField("component", "reconciler"),
		),
		Orders:     runtime.orders,
		OutboxRepo: runtime.outboxRepo,
		Logger:     logger,
		runtime:    runtime,
	}
}
