// Package orders provides a PostgreSQL-backed repository for sealed order
// records.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const orderColumns = `id, user_id, sealed_data, signature, transaction_id,
	delivery_name, delivery_phone, delivery_address_line1, delivery_address_line2,
	delivery_city, delivery_state, delivery_postal_code, delivery_country, created_at`

// Create inserts a sealed order. A conflict on the encoded transaction id
// yields common.ErrAlreadyExists so the id generator can retry with a
// fresh suffix. ON CONFLICT DO NOTHING keeps the surrounding transaction
// usable after a collision (a raised unique violation would abort it).
func (r *PostgresRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (user_id, sealed_data, signature, transaction_id,
			delivery_name, delivery_phone, delivery_address_line1, delivery_address_line2,
			delivery_city, delivery_state, delivery_postal_code, delivery_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING id, created_at
	`
	d := order.Delivery
	err := r.db.QueryRowContext(ctx, query,
		order.UserID, order.SealedData, order.Signature, order.TransactionID,
		d.Name, d.Phone, d.AddressLine1, d.AddressLine2,
		d.City, d.State, d.PostalCode, d.Country).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrAlreadyExists
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, orderColumns)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanOrders(rows)
}

// ListAll returns every order; the seller view filters items per seller in
// the service layer because line items only exist inside the sealed payload.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		ORDER BY created_at DESC
	`, orderColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	defer rows.Close()

	var result []*models.Order
	for rows.Next() {
		o := &models.Order{}
		err := rows.Scan(&o.ID, &o.UserID, &o.SealedData, &o.Signature, &o.TransactionID,
			&o.Delivery.Name, &o.Delivery.Phone, &o.Delivery.AddressLine1, &o.Delivery.AddressLine2,
			&o.Delivery.City, &o.Delivery.State, &o.Delivery.PostalCode, &o.Delivery.Country,
			&o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
