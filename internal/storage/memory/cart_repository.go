package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// cartRepositoryInMemory хранит живые корзины пользователей.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	lines map[string]map[string]domain.CartLine
}

// NewCartRepository возвращает in-memory реализацию CartRepository.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{lines: make(map[string]map[string]domain.CartLine)}
}

// GetCart возвращает корзину пользователя. Отсутствие корзины — пустая корзина, не ошибка.
func (r *cartRepositoryInMemory) GetCart(userID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart := domain.Cart{UserID: userID}
	for _, line := range r.lines[userID] {
		cart.Lines = append(cart.Lines, line)
	}

	sort.Slice(cart.Lines, func(i, j int) bool {
		if !cart.Lines[i].AddedAt.Equal(cart.Lines[j].AddedAt) {
			return cart.Lines[i].AddedAt.Before(cart.Lines[j].AddedAt)
		}
		return cart.Lines[i].ProductID < cart.Lines[j].ProductID
	})

	return cart, nil
}

// AddLine добавляет товар в корзину; повторное добавление суммирует количество.
func (r *cartRepositoryInMemory) AddLine(userID, productID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userLines, ok := r.lines[userID]
	if !ok {
		userLines = make(map[string]domain.CartLine)
		r.lines[userID] = userLines
	}

	line, exists := userLines[productID]
	if exists {
		line.Qty += qty
	} else {
		line = domain.CartLine{ProductID: productID, Qty: qty, AddedAt: time.Now().UTC()}
	}
	userLines[productID] = line
	return nil
}

// UpdateLine выставляет точное количество существующей позиции.
func (r *cartRepositoryInMemory) UpdateLine(userID, productID string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userLines, ok := r.lines[userID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	line, exists := userLines[productID]
	if !exists {
		return domain.ErrCartLineNotFound
	}

	line.Qty = qty
	userLines[productID] = line
	return nil
}

// RemoveLine удаляет позицию из корзины.
func (r *cartRepositoryInMemory) RemoveLine(userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userLines, ok := r.lines[userID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	if _, exists := userLines[productID]; !exists {
		return domain.ErrCartLineNotFound
	}

	delete(userLines, productID)
	return nil
}

// Clear очищает корзину пользователя. Пустая корзина — не ошибка.
func (r *cartRepositoryInMemory) Clear(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lines, userID)
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
