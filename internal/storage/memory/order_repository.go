package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	byNumber map[string]string
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		byNumber: make(map[string]string),
	}
}

// Create сохраняет заказ вместе с позициями. Уникальность номера заказа
// проверяется так же, как уникальный индекс в PostgreSQL.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[order.OrderNumber]; exists {
		return domain.ErrDuplicateOrderNumber
	}
	if _, exists := r.items[order.ID]; exists {
		return domain.ErrDuplicateOrderNumber
	}

	r.items[order.ID] = cloneOrder(order)
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

// GetByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) GetByID(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// GetByPaymentReference ищет заказ по tran_ref платёжного шлюза.
func (r *orderRepositoryInMemory) GetByPaymentReference(ref string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ref == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	for _, order := range r.items {
		if order.PaymentReference == ref {
			return cloneOrder(order), nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// ListByUser возвращает заказы пользователя, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByUser(userID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// SetPaymentReference сохраняет tran_ref после успешного открытия платёжной сессии.
func (r *orderRepositoryInMemory) SetPaymentReference(orderID, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.PaymentReference = ref
	order.UpdatedAt = time.Now().UTC()
	r.items[orderID] = order
	return nil
}

// UpdateStatus выполняет простой перевод статуса без дополнительных эффектов.
func (r *orderRepositoryInMemory) UpdateStatus(orderID string, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.items[orderID] = order
	return nil
}

// cloneOrder копирует заказ вместе с позициями, чтобы избежать мутаций извне.
func cloneOrder(order domain.Order) domain.Order {
	clone := order
	clone.Lines = make([]domain.OrderLine, len(order.Lines))
	copy(clone.Lines, order.Lines)
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
