package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

type productView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	PriceMinor    int64             `json:"price_minor"`
	StockQuantity int               `json:"stock_quantity"`
	StockState    domain.StockState `json:"stock_state"`
	IsActive      bool              `json:"is_active"`
}

func newProductView(p domain.Product) productView {
	return productView{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		PriceMinor:    p.PriceMinor,
		StockQuantity: p.StockQuantity,
		StockState:    p.StockState(),
		IsActive:      p.IsActive,
	}
}

type orderLineView struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Qty           int    `json:"qty"`
	PriceMinor    int64  `json:"price_minor"`
	SubtotalMinor int64  `json:"subtotal_minor"`
}

type orderView struct {
	ID               string             `json:"id"`
	OrderNumber      string             `json:"order_number"`
	Status           domain.OrderStatus `json:"status"`
	Currency         string             `json:"currency"`
	AmountMinor      int64              `json:"amount_minor"`
	PaymentGateway   string             `json:"payment_gateway,omitempty"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	Lines            []orderLineView    `json:"lines"`
	CreatedAt        time.Time          `json:"created_at"`
}

func newOrderView(o domain.Order) orderView {
	lines := make([]orderLineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, orderLineView{
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			Qty:           line.Qty,
			PriceMinor:    line.PriceMinor,
			SubtotalMinor: int64(line.Qty) * line.PriceMinor,
		})
	}
	return orderView{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		Currency:         o.Currency,
		AmountMinor:      o.AmountMinor,
		PaymentGateway:   o.PaymentGateway,
		PaymentReference: o.PaymentReference,
		Lines:            lines,
		CreatedAt:        o.CreatedAt,
	}
}

type checkoutView struct {
	Order                orderView `json:"order"`
	PaymentURL           string    `json:"payment_url"`
	TransactionReference string    `json:"transaction_reference"`
}

type completionView struct {
	OrderNumber string                  `json:"order_number"`
	Status      domain.OrderStatus      `json:"status"`
	Payment     domain.PaymentStatus    `json:"payment_status"`
	Message     string                  `json:"message,omitempty"`
	Shortfalls  []domain.StockShortfall `json:"shortfalls,omitempty"`
}
