package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/cache"
	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/gateway"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

type reconcilerFixture struct {
	carts    domain.CartRepository
	products *memory.ProductRepository
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	gateway  *gateway.MockGateway

	reconciler *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		carts:    memory.NewCartRepository(),
		products: memory.NewProductRepository(),
		orders:   memory.NewOrderRepository(),
		outbox:   memory.NewOutboxRepository(),
		gateway:  gateway.NewMockGateway(),
	}
	store := memory.NewReconciliationStore(f.orders, f.products, f.products, f.carts)
	f.reconciler = NewReconcilerWithoutMetrics(f.orders, store, f.outbox, f.gateway, nil, nil)
	return f
}

// seedPendingOrder создаёт pending-заказ на 2 единицы prod-a с привязанным tran_ref.
func (f *reconcilerFixture) seedPendingOrder(t *testing.T, orderID, userID, ref string) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:             orderID,
		UserID:         userID,
		OrderNumber:    "ORD-20260115-" + orderID,
		Status:         domain.OrderStatusPending,
		Currency:       "EGP",
		AmountMinor:    20000,
		PaymentGateway: "mock",
		Lines: []domain.OrderLine{
			{ID: orderID + "-line", ProductID: "prod-a", ProductName: "Product prod-a", Qty: 2, PriceMinor: 10000, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := f.orders.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := f.orders.SetPaymentReference(orderID, ref); err != nil {
		t.Fatalf("set payment reference failed: %v", err)
	}
	order.PaymentReference = ref
	return order
}

func (f *reconcilerFixture) setVerifiedStatus(status domain.PaymentStatus) {
	f.gateway.Verification = domain.VerificationResult{
		Success:       true,
		Status:        status,
		Currency:      "EGP",
		TransactionID: "TST-REF",
	}
}

func TestReconciler_CompletePaid(t *testing.T) {
	f := newReconcilerFixture()
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 50, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
	if err := f.carts.AddLine("user-1", "prod-a", 2); err != nil {
		t.Fatalf("add cart line failed: %v", err)
	}
	f.setVerifiedStatus(domain.PaymentStatusPaid)

	completion, err := f.reconciler.Complete(context.Background(), "TST-REF")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if !completion.Success || completion.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected successful paid completion, got %+v", completion)
	}
	if completion.Order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid order, got %s", completion.Order.Status)
	}
	if len(completion.Shortfalls) != 0 {
		t.Fatalf("unexpected shortfalls: %+v", completion.Shortfalls)
	}

	product, _ := f.products.GetByID("prod-a")
	if product.StockQuantity != 48 {
		t.Fatalf("expected stock 48 after decrement, got %d", product.StockQuantity)
	}
	cart, _ := f.carts.GetCart("user-1")
	if !cart.Empty() {
		t.Fatal("cart must be cleared on paid completion")
	}

	pending, _ := f.outbox.PullPending(10)
	if len(pending) != 1 || pending[0].EventType != "order.paid" {
		t.Fatalf("expected order.paid event, got %+v", pending)
	}
}

// Оплаченный переход списывает остатки, значит кешированные карточки
// товаров из заказа должны быть сброшены тем же вызовом.
func TestReconciler_CompletePaidInvalidatesProductCache(t *testing.T) {
	f := newReconcilerFixture()
	productCache := cache.NewProductCache(time.Minute)
	store := memory.NewReconciliationStore(f.orders, f.products, f.products, f.carts)
	f.reconciler = NewReconcilerWithoutMetrics(f.orders, store, f.outbox, f.gateway, productCache, nil)

	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 5, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
	f.setVerifiedStatus(domain.PaymentStatusPaid)

	seeded, _ := f.products.GetByID("prod-a")
	productCache.Put(seeded)

	if _, err := f.reconciler.Complete(context.Background(), "TST-REF"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if stale, ok := productCache.Get("prod-a"); ok {
		t.Fatalf("expected cache miss after paid decrement, got stock %d", stale.StockQuantity)
	}
}

// Дубликат webhook-а: списание происходит ровно один раз, статус тот же.
func TestReconciler_CompleteIsIdempotent(t *testing.T) {
	f := newReconcilerFixture()
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 50, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
	f.setVerifiedStatus(domain.PaymentStatusPaid)

	first, err := f.reconciler.Complete(context.Background(), "TST-REF")
	if err != nil {
		t.Fatalf("first complete failed: %v", err)
	}
	second, err := f.reconciler.Complete(context.Background(), "TST-REF")
	if err != nil {
		t.Fatalf("second complete failed: %v", err)
	}

	if !first.Success || !second.Success {
		t.Fatalf("both completions must report success, got %v/%v", first.Success, second.Success)
	}
	if first.Status != second.Status {
		t.Fatalf("statuses differ: %s vs %s", first.Status, second.Status)
	}

	product, _ := f.products.GetByID("prod-a")
	if product.StockQuantity != 48 {
		t.Fatalf("stock must be decremented exactly once, got %d", product.StockQuantity)
	}

	// Повторный вызов не ходит в шлюз: short-circuit по терминальному статусу.
	if f.gateway.VerifyCalls != 1 {
		t.Fatalf("expected 1 verify call, got %d", f.gateway.VerifyCalls)
	}
}

func TestReconciler_CompletePending(t *testing.T) {
	f := newReconcilerFixture()
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 50, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
	f.setVerifiedStatus(domain.PaymentStatusPending)

	completion, err := f.reconciler.Complete(context.Background(), "TST-REF")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if completion.Success || completion.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending completion, got %+v", completion)
	}

	// Перехода нет: заказ остаётся pending и доступен для следующего опроса.
	order, _ := f.orders.GetByID("order-1")
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("order must stay pending, got %s", order.Status)
	}
	product, _ := f.products.GetByID("prod-a")
	if product.StockQuantity != 50 {
		t.Fatalf("stock must stay untouched, got %d", product.StockQuantity)
	}
}

func TestReconciler_CompleteCancelled(t *testing.T) {
	for _, verified := range []domain.PaymentStatus{domain.PaymentStatusCancelled, domain.PaymentStatusFailed} {
		t.Run(string(verified), func(t *testing.T) {
			f := newReconcilerFixture()
			f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 50, IsActive: true})
			f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
			if err := f.carts.AddLine("user-1", "prod-a", 2); err != nil {
				t.Fatalf("add cart line failed: %v", err)
			}
			f.setVerifiedStatus(verified)

			completion, err := f.reconciler.Complete(context.Background(), "TST-REF")
			if err != nil {
				t.Fatalf("complete failed: %v", err)
			}

			if completion.Success || completion.Status != domain.PaymentStatusCancelled {
				t.Fatalf("expected cancelled completion, got %+v", completion)
			}
			if completion.Order.Status != domain.OrderStatusCancelled {
				t.Fatalf("expected cancelled order, got %s", completion.Order.Status)
			}

			// Отмена не трогает ни остатки, ни корзину.
			product, _ := f.products.GetByID("prod-a")
			if product.StockQuantity != 50 {
				t.Fatalf("stock must stay untouched, got %d", product.StockQuantity)
			}
			cart, _ := f.carts.GetCart("user-1")
			if cart.Empty() {
				t.Fatal("cart must stay intact on cancellation")
			}
		})
	}
}

// Нехватка остатка при списании не отменяет оплату: деньги уже получены.
func TestReconciler_CompletePaidWithShortfall(t *testing.T) {
	f := newReconcilerFixture()
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 1, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")
	f.setVerifiedStatus(domain.PaymentStatusPaid)

	completion, err := f.reconciler.Complete(context.Background(), "TST-REF")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if !completion.Success || completion.Order.Status != domain.OrderStatusPaid {
		t.Fatalf("order must still become paid, got %+v", completion)
	}
	if len(completion.Shortfalls) != 1 {
		t.Fatalf("expected reported shortfall, got %+v", completion.Shortfalls)
	}
	if completion.Shortfalls[0].Requested != 2 || completion.Shortfalls[0].Available != 1 {
		t.Fatalf("unexpected shortfall: %+v", completion.Shortfalls[0])
	}
}

func TestReconciler_CompleteErrors(t *testing.T) {
	f := newReconcilerFixture()
	f.products.Seed(domain.Product{ID: "prod-a", Name: "Product prod-a", PriceMinor: 10000, StockQuantity: 50, IsActive: true})
	f.seedPendingOrder(t, "order-1", "user-1", "TST-REF")

	if _, err := f.reconciler.Complete(context.Background(), "  "); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for empty reference, got %v", err)
	}
	if _, err := f.reconciler.Complete(context.Background(), "UNKNOWN-REF"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for unknown reference, got %v", err)
	}

	// Транзиентная ошибка шлюза отдаётся наверх без перехода статуса.
	f.gateway.VerifyErr = fmt.Errorf("dial tcp: timeout: %w", domain.ErrGatewayUnavailable)
	if _, err := f.reconciler.Complete(context.Background(), "TST-REF"); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	order, _ := f.orders.GetByID("order-1")
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("order must stay pending after verification failure, got %s", order.Status)
	}
}
