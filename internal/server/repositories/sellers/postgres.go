// Package sellers provides a PostgreSQL-backed repository for seller
// approval profiles.
package sellers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// Create inserts a seller profile in PENDING state. A second profile for
// the same user yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, profile *models.SellerProfile) (*models.SellerProfile, error) {
	query := `
		INSERT INTO seller_profiles (user_id, shop_name, phone, address, category, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		profile.UserID, profile.ShopName, profile.Phone, profile.Address,
		profile.Category, profile.Status).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return profile, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.SellerProfile, error) {
	query := `
		SELECT id, user_id, shop_name, phone, address, category, status, approved_at, created_at
		FROM seller_profiles
		WHERE user_id = $1
	`
	p := &models.SellerProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.ShopName, &p.Phone, &p.Address,
		&p.Category, &p.Status, &p.ApprovedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// SetStatus transitions the approval state; approvedAt is recorded for
// APPROVED and cleared otherwise.
func (r *PostgresRepository) SetStatus(ctx context.Context, userID int64, status models.SellerApprovalStatus, approvedAt *time.Time) error {
	query := `
		UPDATE seller_profiles SET status = $2, approved_at = $3
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID, status, approvedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
