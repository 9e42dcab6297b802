package cart

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// LineView — строка корзины, обогащённая данными каталога для отображения.
type LineView struct {
	ProductID     string            `json:"product_id"`
	ProductName   string            `json:"product_name"`
	PriceMinor    int64             `json:"price_minor"`
	Qty           int               `json:"qty"`
	SubtotalMinor int64             `json:"subtotal_minor"`
	StockState    domain.StockState `json:"stock_state"`
}

// View — корзина пользователя с промежуточным итогом.
type View struct {
	UserID     string     `json:"user_id"`
	Lines      []LineView `json:"lines"`
	TotalMinor int64      `json:"total_minor"`
}

// Service — операции над живой корзиной с advisory-проверкой остатков.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	stock    domain.StockLedger
	logger   *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(carts domain.CartRepository, products domain.ProductRepository, stock domain.StockLedger, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	return &Service{
		carts:    carts,
		products: products,
		stock:    stock,
		logger:   logger,
	}
}

// Get возвращает корзину, обогащённую живыми ценами каталога.
// Цены здесь справочные: замораживаются они только при оформлении заказа.
func (s *Service) Get(userID string) (View, error) {
	if userID == "" {
		return View{}, domain.ErrUserRequired
	}

	cart, err := s.carts.GetCart(userID)
	if err != nil {
		return View{}, fmt.Errorf("read cart for %s: %w", userID, err)
	}

	view := View{UserID: userID, Lines: make([]LineView, 0, len(cart.Lines))}
	for _, line := range cart.Lines {
		lineView := LineView{ProductID: line.ProductID, Qty: line.Qty}
		if product, err := s.products.GetByID(line.ProductID); err == nil {
			lineView.ProductName = product.Name
			lineView.PriceMinor = product.PriceMinor
			lineView.SubtotalMinor = int64(line.Qty) * product.PriceMinor
			lineView.StockState = product.StockState()
		}
		view.Lines = append(view.Lines, lineView)
		view.TotalMinor += lineView.SubtotalMinor
	}

	return view, nil
}

// Add кладёт товар в корзину. Проверка остатка advisory: ничего не резервируется,
// но заведомо невыполнимые количества отклоняются сразу.
func (s *Service) Add(userID, productID string, qty int) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.ErrLineQtyInvalid
	}

	// Проверяется суммарное количество с учётом уже лежащего в корзине.
	requested := qty
	if cart, err := s.carts.GetCart(userID); err == nil {
		for _, line := range cart.Lines {
			if line.ProductID == productID {
				requested += line.Qty
				break
			}
		}
	}

	if err := s.stock.ValidateAvailability(productID, requested); err != nil {
		return fmt.Errorf("validate availability of %s: %w", productID, err)
	}

	if err := s.carts.AddLine(userID, productID, qty); err != nil {
		return fmt.Errorf("add cart line: %w", err)
	}
	return nil
}

// Update выставляет точное количество позиции.
func (s *Service) Update(userID, productID string, qty int) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.ErrLineQtyInvalid
	}

	if err := s.stock.ValidateAvailability(productID, qty); err != nil {
		return fmt.Errorf("validate availability of %s: %w", productID, err)
	}

	if err := s.carts.UpdateLine(userID, productID, qty); err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	return nil
}

// Remove удаляет позицию из корзины.
func (s *Service) Remove(userID, productID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if err := s.carts.RemoveLine(userID, productID); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

// Clear очищает корзину целиком.
func (s *Service) Clear(userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if err := s.carts.Clear(userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
