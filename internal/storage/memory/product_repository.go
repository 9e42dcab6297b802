package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// ProductRepository — in-memory каталог, он же StockLedger.
// Мьютекс заменяет блокировку строки: последовательность
// чтение-проверка-запись при списании остатка выполняется атомарно.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository создаёт пустой in-memory каталог.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[string]domain.Product)}
}

// Seed кладёт товар в каталог как есть. Используется при старте с memory-хранилищем и в тестах.
func (r *ProductRepository) Seed(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}
	r.items[product.ID] = product
}

func (r *ProductRepository) GetByID(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *ProductRepository) ListActive() ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if product.IsActive {
			result = append(result, product)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *ProductRepository) UpdateStock(id string, quantity int) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	product.StockQuantity = quantity
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// ValidateAvailability — advisory-проверка: остаток не удерживается и не резервируется.
func (r *ProductRepository) ValidateAvailability(productID string, qty int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if !product.IsActive {
		return domain.ErrProductInactive
	}
	if product.StockQuantity < qty {
		return domain.ErrInsufficientStock
	}
	return nil
}

// Decrement списывает остаток под мьютексом. Остаток никогда не уходит ниже нуля.
func (r *ProductRepository) Decrement(productID string, qty int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if product.StockQuantity < qty {
		return product.StockQuantity, domain.ErrInsufficientStock
	}

	product.StockQuantity -= qty
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return product.StockQuantity, nil
}

var (
	_ domain.ProductRepository = (*ProductRepository)(nil)
	_ domain.StockLedger       = (*ProductRepository)(nil)
)
