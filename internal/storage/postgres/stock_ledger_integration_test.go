package postgres

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

func TestStockLedger_PostgresValidateAvailability(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewProductRepository(store)

	seedProductForIntegrationTest(t, store, "active", 100, 3, true)
	seedProductForIntegrationTest(t, store, "inactive", 100, 3, false)

	if err := ledger.ValidateAvailability("active", 3); err != nil {
		t.Fatalf("expected availability ok, got %v", err)
	}
	if err := ledger.ValidateAvailability("active", 4); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := ledger.ValidateAvailability("inactive", 1); !errors.Is(err, domain.ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
	if err := ledger.ValidateAvailability("missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestStockLedger_PostgresConcurrentDecrement(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ledger := NewProductRepository(store)

	seedProductForIntegrationTest(t, store, "product-1", 100, 5, true)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Decrement("product-1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Errorf("unexpected decrement error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful decrements, got %d", succeeded)
	}

	product, err := ledger.GetByID("product-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.StockQuantity != 0 {
		t.Fatalf("stock must not go negative, got %d", product.StockQuantity)
	}
}
