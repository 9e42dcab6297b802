package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего номера заказа.
	ErrOrderNumberRequired = errors.New("order_number is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка некорректного количества в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrLinePriceInvalid = errors.New("line price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match lines sum")

	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInactive — товар снят с продажи.
	ErrProductInactive = errors.New("product is inactive")
	// ErrInsufficientStock — остатка недостаточно под запрошенное количество.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart — попытка оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCartLineNotFound — в корзине нет такой позиции.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrDuplicateOrderNumber — коллизия номера заказа; нужен retry с новым суффиксом.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrGatewayNotConfigured — у шлюза не заданы учётные данные; фатально для оператора.
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")
	// ErrGatewayUnavailable — сеть/таймаут при обращении к шлюзу; можно повторить позже.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected — шлюз ответил бизнес-ошибкой на создание платежа.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrGatewayVerification — verify-запрос завершился ошибкой шлюза.
	ErrGatewayVerification = errors.New("payment verification failed")
	// ErrUnknownGateway — в реестре нет шлюза с таким именем.
	ErrUnknownGateway = errors.New("unknown payment gateway")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// StockValidationFailure описывает одну позицию корзины, не прошедшую проверку остатка.
type StockValidationFailure struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	// Reason — одна из sentinel-ошибок: ErrInsufficientStock, ErrProductInactive, ErrProductNotFound.
	Reason error `json:"-"`
}

// StockValidationError агрегирует все непрошедшие позиции корзины,
// чтобы клиент получил полный список для исправления, а не только первую.
type StockValidationError struct {
	Failures []StockValidationFailure
}

func (e *StockValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		name := f.ProductName
		if name == "" {
			name = f.ProductID
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d (%v)", name, f.Requested, f.Available, f.Reason))
	}
	return "stock validation failed: " + strings.Join(parts, "; ")
}

// AsStockValidationError извлекает агрегированную ошибку валидации остатков.
func AsStockValidationError(err error) (*StockValidationError, bool) {
	var sve *StockValidationError
	if errors.As(err, &sve) {
		return sve, true
	}
	return nil, false
}

// StockShortfall фиксирует нехватку остатка, обнаруженную уже при списании
// после подтверждённой оплаты. Это исключение этапа fulfillment, не ошибка checkout.
type StockShortfall struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
