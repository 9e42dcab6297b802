package domain

import "time"

// CartLine — одна позиция живой корзины пользователя.
type CartLine struct {
	ProductID string
	Qty       int
	AddedAt   time.Time
}

// Cart представляет корзину пользователя. Ядро checkout читает её и очищает
// после подтверждённой оплаты; CRUD позиций выполняет cart-сервис.
type Cart struct {
	UserID string
	Lines  []CartLine
}

// Empty сообщает, пуста ли корзина.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}
