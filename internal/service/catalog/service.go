package catalog

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Service — чтение каталога с кешем и административное изменение остатков.
type Service struct {
	products domain.ProductRepository
	cache    domain.ProductCache
	logger   *log.Entry
}

// NewService создаёт сервис каталога. Кеш опционален.
func NewService(products domain.ProductRepository, cache domain.ProductCache, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

// Get возвращает карточку товара по схеме cache-aside.
func (s *Service) Get(id string) (domain.Product, error) {
	if s.cache != nil {
		if product, ok := s.cache.Get(id); ok {
			return product, nil
		}
	}

	product, err := s.products.GetByID(id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}

	if s.cache != nil {
		s.cache.Put(product)
	}
	return product, nil
}

// List возвращает активные товары. Листинг не кешируется: остатки меняются
// при каждой оплате, а карточки и так читаются через кеш.
func (s *Service) List() ([]domain.Product, error) {
	products, err := s.products.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// UpdateStock выставляет точный остаток и синхронно инвалидирует кеш:
// инвалидацию выполняет тот же компонент, который выполнил мутацию.
func (s *Service) UpdateStock(id string, quantity int) (domain.Product, error) {
	if quantity < 0 {
		return domain.Product{}, domain.ErrLineQtyInvalid
	}

	product, err := s.products.UpdateStock(id, quantity)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update stock of %s: %w", id, err)
	}

	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"stock":      quantity,
	}).Info("product stock updated")

	return product, nil
}
