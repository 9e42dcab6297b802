package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/metrics"
)

// Completion — итог сверки платежа по tran_ref.
type Completion struct {
	Success bool
	Order   domain.Order
	Status  domain.PaymentStatus
	Message string
	// Shortfalls — позиции оплаченного заказа, по которым остатка не хватило.
	Shortfalls []domain.StockShortfall
}

// Reconciler идемпотентно доводит заказ до терминального статуса по tran_ref.
// Вызывается и webhook-обработчиком, и polling-эндпоинтом статуса.
type Reconciler struct {
	orders  domain.OrderRepository
	store   domain.ReconciliationStore
	outbox  domain.OutboxRepository
	gateway domain.PaymentGateway
	cache   domain.ProductCache
	logger  *log.Entry
	metrics *metrics.CheckoutMetrics

	now func() time.Time
}

// NewReconciler создаёт рабочий экземпляр reconciler-а. cache может быть nil,
// тогда инвалидация карточек товара после списания пропускается.
func NewReconciler(
	orders domain.OrderRepository,
	store domain.ReconciliationStore,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	cache domain.ProductCache,
	logger *log.Entry,
) *Reconciler {
	r := newReconciler(orders, store, outbox, gateway, cache, logger)
	r.metrics = metrics.NewCheckoutMetrics()
	return r
}

// NewReconcilerWithoutMetrics создаёт reconciler без метрик (для тестов).
func NewReconcilerWithoutMetrics(
	orders domain.OrderRepository,
	store domain.ReconciliationStore,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	cache domain.ProductCache,
	logger *log.Entry,
) *Reconciler {
	return newReconciler(orders, store, outbox, gateway, cache, logger)
}

func newReconciler(
	orders domain.OrderRepository,
	store domain.ReconciliationStore,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	cache domain.ProductCache,
	logger *log.Entry,
) *Reconciler {
	if logger == nil {
		logger = log.New().WithField("component", "payment-reconciler")
	}
	return &Reconciler{
		orders:  orders,
		store:   store,
		outbox:  outbox,
		gateway: gateway,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// Complete сверяет платёж со шлюзом и переводит заказ в терминальный статус.
// Повторные вызовы для той же ссылки возвращают достигнутое состояние без
// повторных побочных эффектов.
func (r *Reconciler) Complete(ctx context.Context, ref string) (Completion, error) {
	start := r.now()
	outcome := "error"
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordReconcileDuration(outcome, time.Since(start))
		}
	}()

	if strings.TrimSpace(ref) == "" {
		return Completion{}, fmt.Errorf("payment reference is empty: %w", domain.ErrOrderNotFound)
	}

	order, err := r.orders.GetByPaymentReference(ref)
	if err != nil {
		return Completion{}, fmt.Errorf("find order by payment reference %s: %w", ref, err)
	}

	// Idempotency short-circuit: терминальный заказ не сверяется повторно.
	if order.Status.Terminal() {
		outcome = "short-circuit"
		return terminalCompletion(order), nil
	}

	verification, err := r.gateway.VerifyPayment(ctx, ref)
	if err != nil {
		// Транзиентная ошибка отдаётся наверх: решение о повторе за вызывающим.
		r.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"tran_ref": ref,
		}).Warn("payment verification failed")
		return Completion{}, fmt.Errorf("verify payment %s: %w", ref, err)
	}

	r.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"tran_ref": ref,
		"status":   string(verification.Status),
	}).Info("payment verified")

	switch verification.Status {
	case domain.PaymentStatusPaid:
		completion, err := r.completePaid(order, ref)
		if err == nil {
			outcome = "paid"
		}
		return completion, err

	case domain.PaymentStatusPending:
		// Платёж ещё в обработке: без перехода, caller может опросить позже.
		outcome = "pending"
		return Completion{
			Success: false,
			Order:   order,
			Status:  domain.PaymentStatusPending,
			Message: "payment is still pending",
		}, nil

	default:
		completion, err := r.completeCancelled(order, verification.Status)
		if err == nil {
			outcome = "cancelled"
		}
		return completion, err
	}
}

// completePaid выполняет paid-переход: статус, списания и очистка корзины
// атомарно под блокировкой строки заказа.
func (r *Reconciler) completePaid(order domain.Order, ref string) (Completion, error) {
	result, err := r.store.MarkPaid(order.ID)
	if err != nil {
		return Completion{}, fmt.Errorf("mark order %s paid: %w", order.ID, err)
	}

	// Проигравший конкурентный вызов видит уже выполненный переход.
	if !result.Applied {
		return terminalCompletion(result.Order), nil
	}

	if r.metrics != nil {
		r.metrics.RecordOrderPaid()
		r.metrics.RecordStockShortfalls(len(result.Shortfalls))
	}

	// Списание изменило остатки: протухшие карточки убираются сразу,
	// не дожидаясь истечения TTL.
	if r.cache != nil {
		for _, line := range result.Order.Lines {
			r.cache.Invalidate(line.ProductID)
		}
	}

	for _, shortfall := range result.Shortfalls {
		// Заказ оплачен, деньги получены: недостача — исключение для fulfillment,
		// а не провал checkout.
		r.logger.WithFields(log.Fields{
			"order_id":   order.ID,
			"product_id": shortfall.ProductID,
			"requested":  shortfall.Requested,
			"available":  shortfall.Available,
		}).Warn("stock shortfall on paid order")
	}

	r.emitOrderEvent(result.Order, "order.paid", map[string]interface{}{
		"order_number": result.Order.OrderNumber,
		"user_id":      result.Order.UserID,
		"amount_minor": result.Order.AmountMinor,
		"tran_ref":     ref,
		"shortfalls":   len(result.Shortfalls),
	})

	return Completion{
		Success:    true,
		Order:      result.Order,
		Status:     domain.PaymentStatusPaid,
		Message:    "payment confirmed",
		Shortfalls: result.Shortfalls,
	}, nil
}

func (r *Reconciler) completeCancelled(order domain.Order, verified domain.PaymentStatus) (Completion, error) {
	updated, applied, err := r.store.MarkCancelled(order.ID)
	if err != nil {
		return Completion{}, fmt.Errorf("mark order %s cancelled: %w", order.ID, err)
	}

	if !applied {
		return terminalCompletion(updated), nil
	}

	if r.metrics != nil {
		r.metrics.RecordOrderCancelled()
	}

	r.emitOrderEvent(updated, "order.cancelled", map[string]interface{}{
		"order_number":    updated.OrderNumber,
		"user_id":         updated.UserID,
		"verified_status": string(verified),
	})

	return Completion{
		Success: false,
		Order:   updated,
		Status:  domain.PaymentStatusCancelled,
		Message: fmt.Sprintf("payment %s, order cancelled", verified),
	}, nil
}

// terminalCompletion строит ответ по уже терминальному заказу.
func terminalCompletion(order domain.Order) Completion {
	if order.Status == domain.OrderStatusPaid {
		return Completion{
			Success: true,
			Order:   order,
			Status:  domain.PaymentStatusPaid,
			Message: "order already paid",
		}
	}
	return Completion{
		Success: false,
		Order:   order,
		Status:  domain.PaymentStatusCancelled,
		Message: "order already cancelled",
	}
}

func (r *Reconciler) emitOrderEvent(order domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if _, err := r.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}

	if r.metrics != nil {
		r.metrics.RecordOutboxEvent()
	}
}
