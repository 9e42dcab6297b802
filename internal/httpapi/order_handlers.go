package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

const defaultOrdersLimit = 20

// ListOrders возвращает заказы пользователя, новые первыми.
func (h *Handler) ListOrders(c *gin.Context) {
	limit := defaultOrdersLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListByUser(userID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order))
	}
	respondOK(c, views)
}

// GetOrder возвращает заказ пользователя по идентификатору.
// Чужой заказ неотличим от несуществующего.
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != userID(c) {
		respondError(c, domain.ErrOrderNotFound)
		return
	}
	respondOK(c, newOrderView(order))
}
