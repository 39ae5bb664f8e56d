package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/card-checkout/internal/core/domain"
)

type MySQLProductAdapter struct {
	db *sql.DB
}

func NewMySQLProductAdapter(db *sql.DB) *MySQLProductAdapter {
	return &MySQLProductAdapter{db: db}
}

func (m *MySQLProductAdapter) FindAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, price, stock, img_url, created_at, updated_at
		FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.ImgURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

func (m *MySQLProductAdapter) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, stock, img_url, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.ImgURL, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

// DecrementStock removes one unit with a conditional write. The WHERE clause
// carries the invariant: stock can never go negative, whatever the two
// approval paths do concurrently.
func (m *MySQLProductAdapter) DecrementStock(ctx context.Context, id string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - 1, updated_at = NOW()
		WHERE id = ? AND stock > 0`, id,
	)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLProductAdapter) Seed(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO products (id, name, description, price, stock, img_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
			ON DUPLICATE KEY UPDATE
				name = VALUES(name), description = VALUES(description),
				price = VALUES(price), stock = VALUES(stock), img_url = VALUES(img_url),
				updated_at = NOW()`,
			p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImgURL,
		)
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}

	return nil
}

type MySQLTransactionAdapter struct {
	db *sql.DB
}

func NewMySQLTransactionAdapter(db *sql.DB) *MySQLTransactionAdapter {
	return &MySQLTransactionAdapter{db: db}
}

// Create persists the transaction with its delivery and customer in one
// database transaction, so a half-written checkout intent cannot exist.
func (m *MySQLTransactionAdapter) Create(ctx context.Context, t *domain.Transaction) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c := t.Delivery.Customer
	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (id, full_name, email, phone_number, address, city)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.FullName, c.Email, c.PhoneNumber, c.Address, c.City,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deliveries (id, status, fee, customer_id)
		VALUES (?, ?, ?, ?)`,
		t.Delivery.ID, t.Delivery.Status, t.Delivery.Fee, c.ID,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, amount, currency, status, reference, product_id, delivery_id,
			 external_transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount, t.Currency, t.Status, t.Reference,
		t.Product.ID, t.Delivery.ID, t.ExternalTransactionID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLTransactionAdapter) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var (
		t domain.Transaction
		p domain.Product
		d domain.Delivery
		c domain.Customer
	)

	err := m.db.QueryRowContext(ctx, `
		SELECT t.id, t.amount, t.currency, t.status, t.reference,
		       t.external_transaction_id, t.created_at,
		       p.id, p.name, p.description, p.price, p.stock, p.img_url,
		       p.created_at, p.updated_at,
		       d.id, d.status, d.fee,
		       c.id, c.full_name, c.email, c.phone_number, c.address, c.city
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		JOIN deliveries d ON d.id = t.delivery_id
		JOIN customers c ON c.id = d.customer_id
		WHERE t.id = ?`, id,
	).Scan(
		&t.ID, &t.Amount, &t.Currency, &t.Status, &t.Reference,
		&t.ExternalTransactionID, &t.CreatedAt,
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImgURL,
		&p.CreatedAt, &p.UpdatedAt,
		&d.ID, &d.Status, &d.Fee,
		&c.ID, &c.FullName, &c.Email, &c.PhoneNumber, &c.Address, &c.City,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}

	d.Customer = c
	t.Product = &p
	t.Delivery = d

	return &t, nil
}

func (m *MySQLTransactionAdapter) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus, externalID string) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, external_transaction_id = ?
		WHERE id = ?`,
		status, externalID, id,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	return nil
}
