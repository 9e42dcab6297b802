package cache

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// DefaultProductTTL ограничивает время жизни записи каталога в кеше.
const DefaultProductTTL = 5 * time.Minute

type entry struct {
	product   domain.Product
	expiresAt time.Time
}

// ProductCache — in-process TTL-кеш карточек товара.
// Консистентность обеспечивается синхронной инвалидацией: компонент,
// который мутирует товар, сам вызывает Invalidate до возврата ответа.
type ProductCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry

	now func() time.Time
}

// NewProductCache создаёт кеш с заданным TTL; ttl<=0 трактуется как DefaultProductTTL.
func NewProductCache(ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &ProductCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get возвращает товар, если запись ещё жива. Протухшая запись удаляется лениво.
func (c *ProductCache) Get(id string) (domain.Product, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return domain.Product{}, false
	}
	if c.now().After(e.expiresAt) {
		c.Invalidate(id)
		return domain.Product{}, false
	}
	return e.product, true
}

// Put кладёт товар в кеш, перезаписывая предыдущую запись.
func (c *ProductCache) Put(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[product.ID] = entry{
		product:   product,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Invalidate удаляет запись. Отсутствие записи — не ошибка.
func (c *ProductCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, id)
}

var _ domain.ProductCache = (*ProductCache)(nil)
