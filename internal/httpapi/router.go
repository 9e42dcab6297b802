package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/service/cart"
	"github.com/vladislavdragonenkov/ecom/internal/service/catalog"
	"github.com/vladislavdragonenkov/ecom/internal/service/checkout"
)

// userIDHeader — заголовок с идентификатором пользователя.
// Аутентификацию и выдачу токенов выполняет внешний контур, сюда приходит готовый id.
const userIDHeader = "X-User-ID"

const userIDContextKey = "user_id"

// Handler агрегирует сервисы, доступные HTTP-слою.
type Handler struct {
	catalog    *catalog.Service
	cart       *cart.Service
	checkout   *checkout.Orchestrator
	reconciler *checkout.Reconciler
	orders     domain.OrderRepository
	logger     *log.Entry
}

// NewHandler создаёт HTTP-handler поверх сервисов приложения.
func NewHandler(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	orchestrator *checkout.Orchestrator,
	reconciler *checkout.Reconciler,
	orders domain.OrderRepository,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Handler{
		catalog:    catalogSvc,
		cart:       cartSvc,
		checkout:   orchestrator,
		reconciler: reconciler,
		orders:     orders,
		logger:     logger,
	}
}

// Router собирает gin-маршрутизатор со всеми публичными endpoint-ами.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:id", h.GetProduct)
		v1.PUT("/products/:id/stock", h.UpdateProductStock)

		// Webhook шлюза приходит без пользовательского контекста.
		v1.POST("/payments/callback", h.PaymentCallback)
		v1.GET("/checkout/status/:ref", h.CheckoutStatus)

		authed := v1.Group("")
		authed.Use(h.requireUser())
		{
			authed.GET("/cart", h.GetCart)
			authed.POST("/cart/items", h.AddCartItem)
			authed.PUT("/cart/items/:productId", h.UpdateCartItem)
			authed.DELETE("/cart/items/:productId", h.RemoveCartItem)
			authed.DELETE("/cart", h.ClearCart)

			authed.POST("/checkout", h.Checkout)

			authed.GET("/orders", h.ListOrders)
			authed.GET("/orders/:id", h.GetOrder)
		}
	}

	return router
}

// requireUser извлекает идентификатор пользователя из заголовка запроса.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(401, errorBody("user identity is required"))
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("http request completed")
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
