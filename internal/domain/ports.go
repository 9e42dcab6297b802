package domain

import (
	"context"
	"time"
)

// OrderRepository хранит заказы и их неизменяемые снимки позиций.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями атомарно.
	// Возвращает ErrDuplicateOrderNumber при коллизии номера заказа.
	Create(order Order) error
	GetByID(id string) (Order, error)
	// GetByPaymentReference ищет заказ по tran_ref шлюза.
	GetByPaymentReference(ref string) (Order, error)
	ListByUser(userID string, limit int) ([]Order, error)
	// SetPaymentReference сохраняет tran_ref после успешного открытия сессии.
	SetPaymentReference(orderID, ref string) error
	// UpdateStatus выполняет простой перевод статуса (компенсация при инициации).
	UpdateStatus(orderID string, status OrderStatus) error
}

// PaidResult — итог попытки перевести заказ в paid.
type PaidResult struct {
	Order Order
	// Applied=false означает idempotency short-circuit: заказ уже был в терминальном статусе.
	Applied bool
	// Shortfalls — позиции, по которым остатка не хватило при списании.
	Shortfalls []StockShortfall
}

// ReconciliationStore выполняет терминальные переходы заказа атомарно.
// Реализация обязана сериализовать конкурентные вызовы по одному заказу
// блокировкой строки заказа: short-circuit по статусу сам по себе гонку не закрывает.
type ReconciliationStore interface {
	// MarkPaid переводит pending→paid, списывает остатки по каждой позиции
	// и очищает корзину пользователя — всё в одной транзакции под блокировкой
	// строки заказа. Повторные вызовы возвращают Applied=false без побочных эффектов.
	MarkPaid(orderID string) (PaidResult, error)
	// MarkCancelled переводит pending→cancelled без побочных эффектов.
	// Возвращает applied=false, если заказ уже в терминальном статусе.
	MarkCancelled(orderID string) (Order, bool, error)
}

// StockLedger — атомарные операции над складским остатком.
type StockLedger interface {
	// ValidateAvailability проверяет доступность без блокировки и резервирования.
	// Проверка advisory: остаток не удерживается до подтверждения оплаты.
	ValidateAvailability(productID string, qty int) error
	// Decrement списывает остаток под эксклюзивной блокировкой строки товара,
	// в одной транзакции на всю последовательность чтение-проверка-запись.
	// Остаток никогда не уходит ниже нуля.
	Decrement(productID string, qty int) (int, error)
}

// ProductRepository — чтение каталога и административное изменение остатка.
type ProductRepository interface {
	GetByID(id string) (Product, error)
	ListActive() ([]Product, error)
	UpdateStock(id string, quantity int) (Product, error)
}

// CartRepository хранит живые корзины пользователей.
type CartRepository interface {
	// GetCart возвращает корзину пользователя; отсутствие корзины — пустая корзина, не ошибка.
	GetCart(userID string) (Cart, error)
	AddLine(userID, productID string, qty int) error
	UpdateLine(userID, productID string, qty int) error
	RemoveLine(userID, productID string) error
	Clear(userID string) error
}

// PaymentGateway абстрагирует протокол create/verify внешнего платёжного провайдера.
type PaymentGateway interface {
	// Name возвращает имя провайдера для записи в заказ и выбор в реестре.
	Name() string
	// CreatePayment открывает платёжную сессию. Ошибки: ErrGatewayNotConfigured,
	// ErrGatewayUnavailable (сеть/таймаут), ErrGatewayRejected (бизнес-отказ).
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentSession, error)
	// VerifyPayment запрашивает статус платежа и маппит код провайдера
	// в канонический статус.
	VerifyPayment(ctx context.Context, ref string) (VerificationResult, error)
	// GetPaymentStatus — проекция VerifyPayment на поле статуса.
	GetPaymentStatus(ctx context.Context, ref string) (PaymentStatus, error)
}

// ProductCache — явный порт кеша товаров с синхронной инвалидацией.
// Инвалидацию выполняет тот же компонент, который выполняет мутацию.
type ProductCache interface {
	Get(id string) (Product, bool)
	Put(product Product)
	Invalidate(id string)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
