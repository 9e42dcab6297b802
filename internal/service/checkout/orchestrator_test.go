package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/gateway"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

type orchestratorFixture struct {
	carts    domain.CartRepository
	products *memory.ProductRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	gateway  *gateway.MockGateway

	orchestrator *Orchestrator
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		carts:    memory.NewCartRepository(),
		products: memory.NewProductRepository(),
		orders:   memory.NewOrderRepository(),
		outbox:   memory.NewOutboxRepository(),
		gateway:  gateway.NewMockGateway(),
	}
	f.orchestrator = NewOrchestratorWithoutMetrics(
		f.carts, f.products, f.products, f.orders, f.outbox, f.gateway, "EGP", nil,
	)
	return f
}

func (f *orchestratorFixture) seedProduct(id string, priceMinor int64, stock int) {
	f.products.Seed(domain.Product{
		ID:            id,
		Name:          "Product " + id,
		PriceMinor:    priceMinor,
		StockQuantity: stock,
		IsActive:      true,
	})
}

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{6}$`)

func TestOrchestrator_Initiate(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedProduct("prod-a", 10000, 50)
	if err := f.carts.AddLine("user-1", "prod-a", 2); err != nil {
		t.Fatalf("add cart line failed: %v", err)
	}

	result, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{Name: "Jane"}, domain.ContactDetails{})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	if result.Order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", result.Order.Status)
	}
	if result.Order.AmountMinor != 20000 {
		t.Fatalf("expected total 20000, got %d", result.Order.AmountMinor)
	}
	if !orderNumberPattern.MatchString(result.Order.OrderNumber) {
		t.Fatalf("unexpected order number format: %s", result.Order.OrderNumber)
	}
	if result.PaymentURL == "" || result.TransactionReference == "" {
		t.Fatalf("expected payment session, got %+v", result)
	}
	if len(result.Order.Lines) != 1 {
		t.Fatalf("expected 1 order line, got %d", len(result.Order.Lines))
	}
	line := result.Order.Lines[0]
	if line.ProductName != "Product prod-a" || line.PriceMinor != 10000 || line.Qty != 2 {
		t.Fatalf("unexpected line snapshot: %+v", line)
	}

	// Запрос к шлюзу несёт замороженную сумму и номер заказа.
	if f.gateway.LastRequest.OrderNumber != result.Order.OrderNumber {
		t.Fatalf("gateway got wrong order number: %s", f.gateway.LastRequest.OrderNumber)
	}
	if f.gateway.LastRequest.AmountMinor != 20000 {
		t.Fatalf("gateway got wrong amount: %d", f.gateway.LastRequest.AmountMinor)
	}

	// tran_ref сохранён: заказ находится по ссылке.
	stored, err := f.orders.GetByPaymentReference(result.TransactionReference)
	if err != nil {
		t.Fatalf("order not found by payment reference: %v", err)
	}
	if stored.ID != result.Order.ID {
		t.Fatalf("expected order %s, got %s", result.Order.ID, stored.ID)
	}

	// Инициация не списывает остатки и не очищает корзину.
	product, _ := f.products.GetByID("prod-a")
	if product.StockQuantity != 50 {
		t.Fatalf("stock must stay untouched at initiation, got %d", product.StockQuantity)
	}
	cart, _ := f.carts.GetCart("user-1")
	if cart.Empty() {
		t.Fatal("cart must stay intact at initiation")
	}

	// Событие order.created попадает в outbox.
	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("expected one order.created event, got %+v", pending)
	}
}

func TestOrchestrator_InitiateValidation(t *testing.T) {
	f := newOrchestratorFixture()

	if _, err := f.orchestrator.Initiate(context.Background(), "  ", domain.ContactDetails{}, domain.ContactDetails{}); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}

	if _, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{}); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

// Собираются все провалившиеся позиции, а не только первая.
func TestOrchestrator_InitiateAggregatesStockFailures(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedProduct("prod-a", 10000, 1)
	f.seedProduct("prod-b", 5000, 0)
	f.seedProduct("prod-c", 2000, 10)

	for productID, qty := range map[string]int{"prod-a": 2, "prod-b": 1, "prod-c": 1} {
		if err := f.carts.AddLine("user-1", productID, qty); err != nil {
			t.Fatalf("add %s failed: %v", productID, err)
		}
	}

	_, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{})
	sve, ok := domain.AsStockValidationError(err)
	if !ok {
		t.Fatalf("expected StockValidationError, got %v", err)
	}
	if len(sve.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", sve.Failures)
	}

	// Заказа после провала валидации не существует.
	orders, _ := f.orders.ListByUser("user-1", 0)
	if len(orders) != 0 {
		t.Fatalf("no order must be created on validation failure, got %d", len(orders))
	}
	if f.gateway.CreateCalls != 0 {
		t.Fatal("gateway must not be called on validation failure")
	}
}

// Сумма заказа заморожена при создании и не зависит от будущих цен.
func TestOrchestrator_TotalFrozenAtCreation(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedProduct("prod-a", 10000, 50)
	if err := f.carts.AddLine("user-1", "prod-a", 2); err != nil {
		t.Fatalf("add cart line failed: %v", err)
	}

	result, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// Цена товара меняется после оформления.
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 99900, StockQuantity: 50, IsActive: true})

	stored, err := f.orders.GetByID(result.Order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if stored.AmountMinor != 20000 {
		t.Fatalf("total must stay frozen at 20000, got %d", stored.AmountMinor)
	}
	if stored.Lines[0].PriceMinor != 10000 {
		t.Fatalf("line snapshot must keep creation price, got %d", stored.Lines[0].PriceMinor)
	}
}

// При ошибке шлюза заказ не остаётся висеть в pending.
func TestOrchestrator_CompensatesOnGatewayFailure(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedProduct("prod-a", 10000, 50)
	if err := f.carts.AddLine("user-1", "prod-a", 1); err != nil {
		t.Fatalf("add cart line failed: %v", err)
	}
	f.gateway.CreateErr = fmt.Errorf("dial tcp: timeout: %w", domain.ErrGatewayUnavailable)

	_, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{})
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	orders, _ := f.orders.ListByUser("user-1", 0)
	if len(orders) != 1 {
		t.Fatalf("expected compensated order, got %d orders", len(orders))
	}
	if orders[0].Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled order after compensation, got %s", orders[0].Status)
	}
}

func TestOrchestrator_RetriesOrderNumberCollision(t *testing.T) {
	f := newOrchestratorFixture()
	f.seedProduct("prod-a", 10000, 50)
	if err := f.carts.AddLine("user-1", "prod-a", 1); err != nil {
		t.Fatalf("add cart line failed: %v", err)
	}

	suffixes := []string{"AAAA11", "AAAA11", "BBBB22"}
	calls := 0
	f.orchestrator.newSuffix = func() string {
		s := suffixes[calls%len(suffixes)]
		calls++
		return s
	}

	// Первый заказ занимает номер с суффиксом AAAA11.
	first, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{})
	if err != nil {
		t.Fatalf("first initiate failed: %v", err)
	}

	if err := f.carts.AddLine("user-1", "prod-a", 1); err != nil {
		t.Fatalf("refill cart failed: %v", err)
	}
	second, err := f.orchestrator.Initiate(context.Background(), "user-1", domain.ContactDetails{}, domain.ContactDetails{})
	if err != nil {
		t.Fatalf("second initiate failed: %v", err)
	}

	if first.Order.OrderNumber == second.Order.OrderNumber {
		t.Fatalf("collision was not resolved: %s", second.Order.OrderNumber)
	}
	if calls != 3 {
		t.Fatalf("expected 3 suffix generations (1 + collision retry), got %d", calls)
	}
}
