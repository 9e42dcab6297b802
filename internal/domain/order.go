package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидаем подтверждения оплаты от шлюза.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена платёжным шлюзом.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusCancelled — оплата отклонена или заказ отменён до оплаты.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusDelivered — заказ доставлен; выставляется fulfillment-контуром, не ядром.
	OrderStatusDelivered OrderStatus = "delivered"
)

// Terminal сообщает, зафиксирован ли статус для платёжного контура.
// Из paid и cancelled переходы по событиям шлюза запрещены.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// OrderLine — снимок позиции корзины, сделанный в момент создания заказа.
// Цена и название товара фиксируются и не пересчитываются при изменении каталога.
type OrderLine struct {
	ID          string
	ProductID   string
	ProductName string
	Qty         int
	// PriceMinor — зафиксированная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа и снимки его позиций.
// После создания меняются только Status и PaymentReference.
type Order struct {
	ID     string
	UserID string
	// OrderNumber — уникальный человекочитаемый номер, он же cart_id для шлюза.
	OrderNumber string
	Status      OrderStatus
	Currency    string
	// AmountMinor фиксируется при создании как сумма позиций.
	AmountMinor    int64
	PaymentGateway string
	// PaymentReference — tran_ref шлюза; пустой, пока платёжная сессия не открыта.
	PaymentReference string
	Lines            []OrderLine
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.OrderNumber == "" {
		errs = append(errs, ErrOrderNumberRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(line.Qty) * line.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// CanTransition проверяет допустимость перехода статусов.
// Разрешены только pending→paid, pending→cancelled и paid→delivered.
func (o *Order) CanTransition(to OrderStatus) bool {
	switch o.Status {
	case OrderStatusPending:
		return to == OrderStatusPaid || to == OrderStatusCancelled
	case OrderStatusPaid:
		return to == OrderStatusDelivered
	default:
		return false
	}
}
