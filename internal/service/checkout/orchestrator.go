package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/metrics"
)

// maxOrderNumberAttempts ограничивает число повторных генераций номера заказа
// при коллизии уникального индекса.
const maxOrderNumberAttempts = 5

// Result — итог успешной инициации checkout.
type Result struct {
	Order                domain.Order
	PaymentURL           string
	TransactionReference string
}

// Orchestrator превращает живую корзину в pending-заказ с платёжной сессией.
type Orchestrator struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	stock    domain.StockLedger
	orders   domain.OrderRepository
	outbox   domain.OutboxRepository
	gateway  domain.PaymentGateway
	currency string
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics

	now       func() time.Time
	newSuffix func() string
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	carts domain.CartRepository,
	products domain.ProductRepository,
	stock domain.StockLedger,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	currency string,
	logger *log.Entry,
) *Orchestrator {
	o := newOrchestrator(carts, products, stock, orders, outbox, gateway, currency, logger)
	o.metrics = metrics.NewCheckoutMetrics()
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	carts domain.CartRepository,
	products domain.ProductRepository,
	stock domain.StockLedger,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	currency string,
	logger *log.Entry,
) *Orchestrator {
	return newOrchestrator(carts, products, stock, orders, outbox, gateway, currency, logger)
}

func newOrchestrator(
	carts domain.CartRepository,
	products domain.ProductRepository,
	stock domain.StockLedger,
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	gateway domain.PaymentGateway,
	currency string,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	if currency == "" {
		currency = "EGP"
	}
	return &Orchestrator{
		carts:     carts,
		products:  products,
		stock:     stock,
		orders:    orders,
		outbox:    outbox,
		gateway:   gateway,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
		newSuffix: newOrderNumberSuffix,
	}
}

// Initiate читает корзину пользователя, валидирует остатки, создаёт pending-заказ
// с замороженными снимками позиций и открывает платёжную сессию у шлюза.
// Локальная транзакция не охватывает HTTP-вызов шлюза: при его ошибке
// только что созданный заказ компенсирующе отменяется.
func (o *Orchestrator) Initiate(ctx context.Context, userID string, customer domain.ContactDetails, shipping domain.ContactDetails) (Result, error) {
	start := o.now()
	if o.metrics != nil {
		o.metrics.RecordCheckoutStarted()
		defer func() {
			o.metrics.RecordCheckoutFinished()
			o.metrics.RecordCheckoutDuration(time.Since(start))
		}()
	}

	result, err := o.initiate(ctx, userID, customer, shipping)
	if o.metrics != nil {
		if err != nil {
			o.metrics.RecordCheckoutFailed()
		} else {
			o.metrics.RecordCheckoutSucceeded()
		}
	}
	return result, err
}

func (o *Orchestrator) initiate(ctx context.Context, userID string, customer domain.ContactDetails, shipping domain.ContactDetails) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, domain.ErrUserRequired
	}

	cart, err := o.carts.GetCart(userID)
	if err != nil {
		return Result{}, fmt.Errorf("read cart for %s: %w", userID, err)
	}
	if cart.Empty() {
		return Result{}, domain.ErrEmptyCart
	}

	lines, err := o.snapshotLines(cart)
	if err != nil {
		return Result{}, err
	}

	order, err := o.createOrder(userID, lines)
	if err != nil {
		return Result{}, err
	}

	o.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"amount_minor": order.AmountMinor,
	}).Info("order created, opening payment session")

	session, err := o.gateway.CreatePayment(ctx, domain.PaymentRequest{
		OrderNumber: order.OrderNumber,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		Description: "Order " + order.OrderNumber,
		Customer:    customer,
		Shipping:    shipping,
	})
	if err != nil {
		// Заказ не должен остаться висеть в pending без возможности оплаты.
		o.compensate(order, err)
		return Result{}, fmt.Errorf("open payment session for %s: %w", order.OrderNumber, err)
	}

	if err := o.orders.SetPaymentReference(order.ID, session.TransactionReference); err != nil {
		// Без сохранённого tran_ref заказ невозможно сверить; отменяем его.
		o.compensate(order, err)
		return Result{}, fmt.Errorf("persist payment reference for %s: %w", order.OrderNumber, err)
	}
	order.PaymentReference = session.TransactionReference

	o.emitOrderEvent(order, "order.created", map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"amount_minor": order.AmountMinor,
		"currency":     order.Currency,
		"status":       string(order.Status),
	})

	return Result{
		Order:                order,
		PaymentURL:           session.PaymentURL,
		TransactionReference: session.TransactionReference,
	}, nil
}

// snapshotLines валидирует остатки по каждой позиции и строит снимки строк заказа.
// Собираются все провалившиеся позиции, а не только первая.
func (o *Orchestrator) snapshotLines(cart domain.Cart) ([]domain.OrderLine, error) {
	var failures []domain.StockValidationFailure
	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	now := o.now().UTC()

	for _, line := range cart.Lines {
		product, err := o.products.GetByID(line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				failures = append(failures, domain.StockValidationFailure{
					ProductID: line.ProductID,
					Requested: line.Qty,
					Reason:    domain.ErrProductNotFound,
				})
				continue
			}
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}

		if err := o.stock.ValidateAvailability(line.ProductID, line.Qty); err != nil {
			failure := domain.StockValidationFailure{
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Requested:   line.Qty,
				Available:   product.StockQuantity,
			}
			switch {
			case errors.Is(err, domain.ErrProductInactive):
				failure.Reason = domain.ErrProductInactive
			case errors.Is(err, domain.ErrInsufficientStock):
				failure.Reason = domain.ErrInsufficientStock
			case errors.Is(err, domain.ErrProductNotFound):
				failure.Reason = domain.ErrProductNotFound
			default:
				return nil, fmt.Errorf("validate availability of %s: %w", line.ProductID, err)
			}
			failures = append(failures, failure)
			continue
		}

		lines = append(lines, domain.OrderLine{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Qty:         line.Qty,
			PriceMinor:  product.PriceMinor,
			CreatedAt:   now,
		})
	}

	if len(failures) > 0 {
		return nil, &domain.StockValidationError{Failures: failures}
	}

	return lines, nil
}

// createOrder сохраняет заказ, перегенерируя номер при коллизии уникального индекса.
func (o *Orchestrator) createOrder(userID string, lines []domain.OrderLine) (domain.Order, error) {
	var total int64
	for _, line := range lines {
		total += int64(line.Qty) * line.PriceMinor
	}

	now := o.now().UTC()
	order := domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         domain.OrderStatusPending,
		Currency:       o.currency,
		AmountMinor:    total,
		PaymentGateway: o.gateway.Name(),
		Lines:          lines,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = o.orderNumber(now)

		err := o.orders.Create(order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
			return domain.Order{}, fmt.Errorf("create order: %w", err)
		}

		o.logger.WithFields(log.Fields{
			"order_number": order.OrderNumber,
			"attempt":      attempt,
		}).Warn("order number collision, regenerating")
	}

	return domain.Order{}, fmt.Errorf("create order after %d attempts: %w", maxOrderNumberAttempts, domain.ErrDuplicateOrderNumber)
}

func (o *Orchestrator) orderNumber(now time.Time) string {
	return "ORD-" + now.Format("20060102") + "-" + o.newSuffix()
}

// newOrderNumberSuffix возвращает короткий opaque-суффикс номера заказа.
func newOrderNumberSuffix() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}

// compensate отменяет только что созданный заказ после ошибки шлюза.
func (o *Orchestrator) compensate(order domain.Order, rootErr error) {
	o.logger.WithError(rootErr).WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	}).Warn("payment session failed, cancelling order")

	if err := o.orders.UpdateStatus(order.ID, domain.OrderStatusCancelled); err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Error("compensating cancellation failed")
		return
	}

	o.emitOrderEvent(order, "order.cancelled", map[string]interface{}{
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"reason":       rootErr.Error(),
	})
}

func (o *Orchestrator) emitOrderEvent(order domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if _, err := o.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}); err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}

	if o.metrics != nil {
		o.metrics.RecordOutboxEvent()
	}
}
