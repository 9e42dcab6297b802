package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// response — единый конверт для всех ответов API.
type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func okBody(data interface{}) response {
	return response{Success: true, Data: data}
}

func errorBody(message string) response {
	return response{Success: false, Message: message}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, okBody(data))
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, okBody(data))
}

// respondError маппит доменную ошибку на HTTP-статус и конверт ошибки.
// Агрегированная ошибка валидации остатков отдаётся целиком,
// чтобы клиент исправил все позиции за один заход.
func respondError(c *gin.Context, err error) {
	if sve, ok := domain.AsStockValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, response{
			Success: false,
			Message: "stock validation failed",
			Data:    gin.H{"failures": sve.Failures},
		})
		return
	}

	c.JSON(statusForError(err), errorBody(err.Error()))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCartLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrLineQtyInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrGatewayRejected),
		errors.Is(err, domain.ErrGatewayVerification):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
