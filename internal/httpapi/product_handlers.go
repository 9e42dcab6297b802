package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProducts возвращает активные товары каталога.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List()
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	respondOK(c, views)
}

// GetProduct возвращает один товар каталога по идентификатору.
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newProductView(product))
}

type updateStockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// UpdateProductStock выставляет точный остаток товара (административная операция).
func (h *Handler) UpdateProductStock(c *gin.Context) {
	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("quantity is required"))
		return
	}

	product, err := h.catalog.UpdateStock(c.Param("id"), *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, newProductView(product))
}
