package cart

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

func newCartFixture() (*Service, *memory.ProductRepository) {
	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	return NewService(carts, products, products, nil), products
}

func TestService_AddAndGet(t *testing.T) {
	svc, products := newCartFixture()
	products.Seed(domain.Product{ID: "prod-1", Name: "Keyboard", PriceMinor: 10000, StockQuantity: 10, IsActive: true})

	if err := svc.Add("user-1", "prod-1", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	view, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(view.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(view.Lines))
	}
	line := view.Lines[0]
	if line.ProductName != "Keyboard" || line.SubtotalMinor != 20000 {
		t.Fatalf("unexpected line view: %+v", line)
	}
	if view.TotalMinor != 20000 {
		t.Fatalf("expected total 20000, got %d", view.TotalMinor)
	}
}

func TestService_AddValidation(t *testing.T) {
	svc, products := newCartFixture()
	products.Seed(domain.Product{ID: "prod-1", Name: "Keyboard", PriceMinor: 10000, StockQuantity: 3, IsActive: true})
	products.Seed(domain.Product{ID: "prod-2", Name: "Mouse", PriceMinor: 5000, StockQuantity: 10, IsActive: false})

	if err := svc.Add("", "prod-1", 1); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if err := svc.Add("user-1", "prod-1", 0); !errors.Is(err, domain.ErrLineQtyInvalid) {
		t.Fatalf("expected ErrLineQtyInvalid, got %v", err)
	}
	if err := svc.Add("user-1", "prod-2", 1); !errors.Is(err, domain.ErrProductInactive) {
		t.Fatalf("expected ErrProductInactive, got %v", err)
	}
	if err := svc.Add("user-1", "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	// Advisory-проверка учитывает уже лежащее в корзине количество.
	if err := svc.Add("user-1", "prod-1", 2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := svc.Add("user-1", "prod-1", 2); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for cumulative qty, got %v", err)
	}
}

func TestService_UpdateAndRemove(t *testing.T) {
	svc, products := newCartFixture()
	products.Seed(domain.Product{ID: "prod-1", Name: "Keyboard", PriceMinor: 10000, StockQuantity: 5, IsActive: true})

	if err := svc.Add("user-1", "prod-1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.Update("user-1", "prod-1", 0); !errors.Is(err, domain.ErrLineQtyInvalid) {
		t.Fatalf("expected ErrLineQtyInvalid, got %v", err)
	}
	if err := svc.Update("user-1", "prod-1", 6); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := svc.Update("user-1", "prod-1", 4); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	view, _ := svc.Get("user-1")
	if view.Lines[0].Qty != 4 {
		t.Fatalf("expected qty 4, got %d", view.Lines[0].Qty)
	}

	if err := svc.Remove("user-1", "prod-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := svc.Remove("user-1", "prod-1"); !errors.Is(err, domain.ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound, got %v", err)
	}
}

func TestService_Clear(t *testing.T) {
	svc, products := newCartFixture()
	products.Seed(domain.Product{ID: "prod-1", Name: "Keyboard", PriceMinor: 10000, StockQuantity: 5, IsActive: true})

	if err := svc.Add("user-1", "prod-1", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := svc.Clear("user-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	view, _ := svc.Get("user-1")
	if len(view.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", view)
	}
}
