package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// reconciliationStoreInMemory выполняет терминальные переходы заказа.
// Мьютекс сериализует конкурентные вызовы целиком, заменяя блокировку
// строки заказа: short-circuit по статусу перепроверяется уже под мьютексом.
type reconciliationStoreInMemory struct {
	mu       sync.Mutex
	orders   domain.OrderRepository
	stock    domain.StockLedger
	products domain.ProductRepository
	carts    domain.CartRepository
}

// NewReconciliationStore собирает in-memory реализацию поверх остальных memory-репозиториев.
func NewReconciliationStore(
	orders domain.OrderRepository,
	stock domain.StockLedger,
	products domain.ProductRepository,
	carts domain.CartRepository,
) domain.ReconciliationStore {
	return &reconciliationStoreInMemory{
		orders:   orders,
		stock:    stock,
		products: products,
		carts:    carts,
	}
}

// MarkPaid переводит pending→paid, списывает остатки по каждой позиции и очищает
// корзину пользователя. Нехватка остатка переход не блокирует: заказ уже оплачен,
// недостача возвращается в Shortfalls.
func (s *reconciliationStoreInMemory) MarkPaid(orderID string) (domain.PaidResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return domain.PaidResult{}, err
	}
	if order.Status.Terminal() {
		return domain.PaidResult{Order: order, Applied: false}, nil
	}

	if err := s.orders.UpdateStatus(orderID, domain.OrderStatusPaid); err != nil {
		return domain.PaidResult{}, fmt.Errorf("mark order paid: %w", err)
	}

	var shortfalls []domain.StockShortfall
	for _, line := range order.Lines {
		_, err := s.stock.Decrement(line.ProductID, line.Qty)
		if err == nil {
			continue
		}
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound) {
			shortfalls = append(shortfalls, domain.StockShortfall{
				ProductID: line.ProductID,
				Requested: line.Qty,
				Available: s.available(line.ProductID),
			})
			continue
		}
		return domain.PaidResult{}, fmt.Errorf("decrement stock for %s: %w", line.ProductID, err)
	}

	if err := s.carts.Clear(order.UserID); err != nil {
		return domain.PaidResult{}, fmt.Errorf("clear cart for %s: %w", order.UserID, err)
	}

	updated, err := s.orders.GetByID(orderID)
	if err != nil {
		return domain.PaidResult{}, err
	}

	return domain.PaidResult{Order: updated, Applied: true, Shortfalls: shortfalls}, nil
}

// MarkCancelled переводит pending→cancelled без побочных эффектов.
func (s *reconciliationStoreInMemory) MarkCancelled(orderID string) (domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.GetByID(orderID)
	if err != nil {
		return domain.Order{}, false, err
	}
	if order.Status.Terminal() {
		return order, false, nil
	}

	if err := s.orders.UpdateStatus(orderID, domain.OrderStatusCancelled); err != nil {
		return domain.Order{}, false, fmt.Errorf("mark order cancelled: %w", err)
	}

	updated, err := s.orders.GetByID(orderID)
	if err != nil {
		return domain.Order{}, false, err
	}
	return updated, true, nil
}

func (s *reconciliationStoreInMemory) available(productID string) int {
	product, err := s.products.GetByID(productID)
	if err != nil {
		return 0
	}
	return product.StockQuantity
}

var _ domain.ReconciliationStore = (*reconciliationStoreInMemory)(nil)
