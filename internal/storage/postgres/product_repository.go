package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
)

type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию каталога, она же StockLedger.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{db: store.DB()}
}

func (r *ProductRepository) GetByID(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price_minor, stock_quantity, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
}

func (r *ProductRepository) ListActive() ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price_minor, stock_quantity, is_active, created_at, updated_at
		FROM products
		WHERE is_active
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) UpdateStock(id string, quantity int) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, name, description, price_minor, stock_quantity, is_active, created_at, updated_at
	`, id, quantity, time.Now().UTC()))
	if err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

// ValidateAvailability — advisory-проверка без блокировки и резервирования:
// остаток не удерживается до подтверждения оплаты.
func (r *ProductRepository) ValidateAvailability(productID string, qty int) error {
	product, err := r.GetByID(productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return domain.ErrProductInactive
	}
	if product.StockQuantity < qty {
		return domain.ErrInsufficientStock
	}
	return nil
}

// Decrement списывает остаток под FOR UPDATE: конкурентные списания по одному
// товару сериализуются, и остаток не может уйти ниже нуля.
func (r *ProductRepository) Decrement(productID string, qty int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	remaining, err := decrementInTx(ctx, tx, productID, qty)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stock decrement: %w", err)
	}

	return remaining, nil
}

// decrementInTx выполняет чтение-проверку-запись остатка внутри переданной
// транзакции. Используется и отдельным Decrement, и paid-переходом заказа.
func decrementInTx(ctx context.Context, tx *sql.Tx, productID string, qty int) (int, error) {
	var current int
	err := tx.QueryRowContext(ctx, `
		SELECT stock_quantity
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("lock product row: %w", err)
	}

	if current < qty {
		return current, domain.ErrInsufficientStock
	}

	remaining := current - qty
	if _, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = $2, updated_at = $3
		WHERE id = $1
	`, productID, remaining, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("update stock quantity: %w", err)
	}

	return remaining, nil
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.PriceMinor,
		&product.StockQuantity, &product.IsActive, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return product, nil
}

var (
	_ domain.ProductRepository = (*ProductRepository)(nil)
	_ domain.StockLedger       = (*ProductRepository)(nil)
)
