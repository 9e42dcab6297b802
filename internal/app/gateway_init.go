package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/gateway"
)

// buildGatewayRegistry собирает реестр платёжных шлюзов.
// Mock регистрируется всегда: он нужен для разработки и интеграционных прогонов.
// ClickPay регистрируется только при заданных учётных данных.
func buildGatewayRegistry(cfg Config, logger *log.Entry) *gateway.Registry {
	registry := gateway.NewRegistry(gateway.NewMockGateway())

	if cfg.ClickPayProfileID != 0 && cfg.ClickPayServerKey != "" {
		registry.Register(gateway.NewClickPayClient(gateway.ClickPayConfig{
			ProfileID:   cfg.ClickPayProfileID,
			ServerKey:   cfg.ClickPayServerKey,
			BaseURL:     cfg.ClickPayBaseURL,
			CallbackURL: cfg.ClickPayCallbackURL,
			ReturnURL:   cfg.ClickPayReturnURL,
		}))
		logger.Info("clickpay gateway registered")
	}

	return registry
}

// selectGateway возвращает активный шлюз по имени из конфигурации.
func selectGateway(registry *gateway.Registry, cfg Config) (domain.PaymentGateway, error) {
	name := cfg.Gateway
	if name == "" {
		name = "mock"
	}
	return registry.Get(name)
}
