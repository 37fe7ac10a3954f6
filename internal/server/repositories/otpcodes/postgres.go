// Package otpcodes provides a PostgreSQL-backed repository for one-time
// codes. Rows are append-only; consumption is the only mutation and is
// performed as an atomic conditional update.
package otpcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends a new unconsumed code row.
func (r *PostgresRepository) Create(ctx context.Context, userID int64, code string, expiry time.Time) (*models.OTPCode, error) {
	query := `
		INSERT INTO otp_codes (user_id, code, expiry)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	rec := &models.OTPCode{UserID: userID, Code: code, Expiry: expiry}
	if err := r.db.QueryRowContext(ctx, query, userID, code, expiry).Scan(&rec.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// LatestUnconsumed returns the most recently issued unconsumed code for a
// user, or common.ErrorNotFound when none exists.
func (r *PostgresRepository) LatestUnconsumed(ctx context.Context, userID int64) (*models.OTPCode, error) {
	query := `
		SELECT id, user_id, code, expiry, consumed
		FROM otp_codes
		WHERE user_id = $1 AND NOT consumed
		ORDER BY expiry DESC
		LIMIT 1
	`
	rec := &models.OTPCode{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&rec.ID, &rec.UserID, &rec.Code, &rec.Expiry, &rec.Consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// Consume marks the code consumed if and only if it is still unconsumed.
// The conditional update serializes concurrent verifications: exactly one
// caller observes true for a given row.
func (r *PostgresRepository) Consume(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE otp_codes SET consumed = TRUE
		WHERE id = $1 AND NOT consumed
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}
