// Package products provides the PostgreSQL product projection used by
// order placement: seller ownership and stock.
package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByIDs returns the products for the given ids. Missing ids are simply
// absent from the result; the caller decides whether that is an error.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, seller_id, name, price, stock
		FROM products
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	query := `
		SELECT id, seller_id, name, price, stock
		FROM products
		WHERE seller_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// DecrementStock atomically deducts qty and reports whether enough stock
// was available.
func (r *PostgresRepository) DecrementStock(ctx context.Context, id int64, qty int64) (bool, error) {
	query := `
		UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`
	res, err := r.db.ExecContext(ctx, query, id, qty)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}
