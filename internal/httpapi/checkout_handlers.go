package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

type checkoutRequest struct {
	Customer domain.ContactDetails `json:"customer"`
	Shipping domain.ContactDetails `json:"shipping"`
}

// Checkout превращает корзину пользователя в pending-заказ и открывает платёжную сессию.
// Контактные данные опциональны: на границе шлюза к ним применяются значения по умолчанию.
func (h *Handler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody("invalid checkout payload"))
		return
	}

	result, err := h.checkout.Initiate(c.Request.Context(), userID(c), req.Customer, req.Shipping)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, checkoutView{
		Order:                newOrderView(result.Order),
		PaymentURL:           result.PaymentURL,
		TransactionReference: result.TransactionReference,
	})
}

type callbackRequest struct {
	TranRef string `json:"tran_ref"`
}

// PaymentCallback — webhook платёжного шлюза. Единственное обязательное
// поле — tran_ref; его отсутствие — ошибка клиента.
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TranRef == "" {
		c.JSON(http.StatusBadRequest, errorBody("tran_ref is required"))
		return
	}

	completion, err := h.reconciler.Complete(c.Request.Context(), req.TranRef)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, newCompletionView(completion))
}

// CheckoutStatus — polling-эндпоинт статуса оплаты. При недоступности шлюза
// отдаёт последний известный статус заказа, чтобы клиент мог опросить позже.
func (h *Handler) CheckoutStatus(c *gin.Context) {
	ref := c.Param("ref")

	completion, err := h.reconciler.Complete(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) {
			h.lastKnownStatus(c, ref)
			return
		}
		respondError(c, err)
		return
	}

	respondOK(c, newCompletionView(completion))
}

// lastKnownStatus — fallback для polling-эндпоинта: шлюз недоступен,
// но заказ известен, и его текущего статуса клиенту достаточно.
func (h *Handler) lastKnownStatus(c *gin.Context, ref string) {
	order, err := h.orders.GetByPaymentReference(ref)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithField("tran_ref", ref).Warn("payment gateway unavailable, returning last known order status")
	respondOK(c, completionView{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Payment:     paymentStatusForOrder(order.Status),
		Message:     "payment gateway unavailable, returning last known order status",
	})
}

func newCompletionView(completion checkout.Completion) completionView {
	return completionView{
		OrderNumber: completion.Order.OrderNumber,
		Status:      completion.Order.Status,
		Payment:     completion.Status,
		Message:     completion.Message,
		Shortfalls:  completion.Shortfalls,
	}
}

func paymentStatusForOrder(status domain.OrderStatus) domain.PaymentStatus {
	switch status {
	case domain.OrderStatusPaid, domain.OrderStatusDelivered:
		return domain.PaymentStatusPaid
	case domain.OrderStatusCancelled:
		return domain.PaymentStatusCancelled
	default:
		return domain.PaymentStatusPending
	}
}
