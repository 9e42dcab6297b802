package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCart возвращает корзину пользователя с живыми ценами каталога.
func (h *Handler) GetCart(c *gin.Context) {
	view, err := h.cart.Get(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required"`
}

// AddCartItem добавляет позицию в корзину; повторное добавление суммирует количество.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("product_id and qty are required"))
		return
	}

	if err := h.cart.Add(userID(c), req.ProductID, req.Qty); err != nil {
		respondError(c, err)
		return
	}

	view, err := h.cart.Get(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, view)
}

type updateCartItemRequest struct {
	Qty int `json:"qty" binding:"required"`
}

// UpdateCartItem выставляет точное количество позиции в корзине.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("qty is required"))
		return
	}

	if err := h.cart.Update(userID(c), c.Param("productId"), req.Qty); err != nil {
		respondError(c, err)
		return
	}

	view, err := h.cart.Get(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	if err := h.cart.Remove(userID(c), c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}

	view, err := h.cart.Get(userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, view)
}

// ClearCart очищает корзину пользователя целиком.
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.cart.Clear(userID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"cleared": true})
}
