package domain

import "time"

// Product — товар каталога. Ядро checkout читает цену и доступность,
// а изменяет только StockQuantity (через StockLedger).
type Product struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — цена в минимальных денежных единицах.
	PriceMinor    int64
	StockQuantity int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StockState описывает укрупнённое состояние остатка для витрины.
type StockState string

const (
	StockStateInStock    StockState = "in_stock"
	StockStateLowStock   StockState = "low_stock"
	StockStateOutOfStock StockState = "out_of_stock"
)

// lowStockThreshold — порог, ниже которого остаток считается низким.
const lowStockThreshold = 5

// StockState возвращает состояние остатка для отображения в каталоге.
func (p Product) StockState() StockState {
	switch {
	case p.StockQuantity == 0:
		return StockStateOutOfStock
	case p.StockQuantity <= lowStockThreshold:
		return StockStateLowStock
	default:
		return StockStateInStock
	}
}

// InStock сообщает, достаточно ли остатка под запрошенное количество.
func (p Product) InStock(qty int) bool {
	return p.IsActive && p.StockQuantity >= qty
}
