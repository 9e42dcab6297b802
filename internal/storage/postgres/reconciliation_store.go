package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

// Терминальный переход держит блокировку строки заказа и блокировки строк
// товаров, поэтому таймаут шире обычного операционного.
const reconcileTimeout = 15 * time.Second

type reconciliationStore struct {
	db *sql.DB
}

// NewReconciliationStore создаёт PostgreSQL-реализацию ReconciliationStore.
func NewReconciliationStore(store *Store) domain.ReconciliationStore {
	return &reconciliationStore{db: store.DB()}
}

// MarkPaid переводит заказ pending→paid, списывает остатки и очищает корзину
// в одной транзакции. Строка заказа блокируется FOR UPDATE: из двух конкурентных
// вызовов ровно один выполняет тело перехода, второй увидит терминальный статус
// уже под блокировкой и вернёт Applied=false.
func (s *reconciliationStore) MarkPaid(orderID string) (domain.PaidResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PaidResult{}, fmt.Errorf("begin tx: %w", err)
	}

	result, err := s.markPaidInTx(ctx, tx, orderID)
	if err != nil {
		_ = tx.Rollback()
		return domain.PaidResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.PaidResult{}, fmt.Errorf("commit paid transition: %w", err)
	}

	return result, nil
}

func (s *reconciliationStore) markPaidInTx(ctx context.Context, tx *sql.Tx, orderID string) (domain.PaidResult, error) {
	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return domain.PaidResult{}, err
	}

	order.Lines, err = loadLinesInTx(ctx, tx, order.ID)
	if err != nil {
		return domain.PaidResult{}, err
	}

	// Idempotency short-circuit под блокировкой: повторная доставка webhook
	// или проигравший конкурентный вызов не выполняют тело перехода.
	if order.Status.Terminal() {
		return domain.PaidResult{Order: order, Applied: false}, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, order.ID, string(domain.OrderStatusPaid), now); err != nil {
		return domain.PaidResult{}, fmt.Errorf("mark order paid: %w", err)
	}
	order.Status = domain.OrderStatusPaid
	order.UpdatedAt = now

	// Деньги уже списаны, поэтому нехватка остатка не отменяет переход:
	// она фиксируется как shortfall для fulfillment-контура.
	var shortfalls []domain.StockShortfall
	for _, line := range order.Lines {
		if _, err := decrementInTx(ctx, tx, line.ProductID, line.Qty); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound) {
				shortfalls = append(shortfalls, domain.StockShortfall{
					ProductID: line.ProductID,
					Requested: line.Qty,
					Available: availableInTx(ctx, tx, line.ProductID),
				})
				continue
			}
			return domain.PaidResult{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cart_lines
		WHERE user_id = $1
	`, order.UserID); err != nil {
		return domain.PaidResult{}, fmt.Errorf("clear cart after payment: %w", err)
	}

	return domain.PaidResult{Order: order, Applied: true, Shortfalls: shortfalls}, nil
}

// MarkCancelled переводит pending→cancelled без побочных эффектов.
func (s *reconciliationStore) MarkCancelled(orderID string) (domain.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("begin tx: %w", err)
	}

	order, applied, err := s.markCancelledInTx(ctx, tx, orderID)
	if err != nil {
		_ = tx.Rollback()
		return domain.Order{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, false, fmt.Errorf("commit cancelled transition: %w", err)
	}

	return order, applied, nil
}

func (s *reconciliationStore) markCancelledInTx(ctx context.Context, tx *sql.Tx, orderID string) (domain.Order, bool, error) {
	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return domain.Order{}, false, err
	}

	order.Lines, err = loadLinesInTx(ctx, tx, order.ID)
	if err != nil {
		return domain.Order{}, false, err
	}

	if order.Status.Terminal() {
		return order, false, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, order.ID, string(domain.OrderStatusCancelled), now); err != nil {
		return domain.Order{}, false, fmt.Errorf("mark order cancelled: %w", err)
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = now

	return order, true, nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, orderID string) (domain.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx, `
		SELECT id, user_id, order_number, status, currency, amount_minor,
		       payment_gateway, payment_reference, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID))
}

func loadLinesInTx(ctx context.Context, tx *sql.Tx, orderID string) ([]domain.OrderLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, product_name, qty, price_minor, created_at
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.ProductID, &line.ProductName,
			&line.Qty, &line.PriceMinor, &line.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

// availableInTx возвращает остаток для отчёта о shortfall; ошибки чтения
// здесь не фатальны, отсутствие товара трактуется как нулевой остаток.
func availableInTx(ctx context.Context, tx *sql.Tx, productID string) int {
	var available int
	if err := tx.QueryRowContext(ctx, `
		SELECT stock_quantity FROM products WHERE id = $1
	`, productID).Scan(&available); err != nil {
		return 0
	}
	return available
}

var _ domain.ReconciliationStore = (*reconciliationStore)(nil)
