package sellers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now())
	mock.ExpectQuery(`INSERT\s+INTO\s+seller_profiles`).
		WithArgs(int64(7), "Bob's Shop", "+100", "1 Main St", "books", "PENDING").
		WillReturnRows(rows)

	p := &models.SellerProfile{
		UserID: 7, ShopName: "Bob's Shop", Phone: "+100",
		Address: "1 Main St", Category: "books", Status: models.SellerPending,
	}
	got, err := repo.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+seller_profiles`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.SellerProfile{UserID: 7, Status: models.SellerPending})
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetByUserID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	approved := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "shop_name", "phone", "address", "category", "status", "approved_at", "created_at"}).
		AddRow(int64(1), int64(7), "Bob's Shop", "+100", "1 Main St", "books", "APPROVED", approved, time.Now())
	mock.ExpectQuery(`FROM\s+seller_profiles\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := repo.GetByUserID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByUserID error: %v", err)
	}
	if got.Status != models.SellerApproved || got.ApprovedAt == nil {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestGetByUserID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+seller_profiles`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), 9)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestSetStatus_Missing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+seller_profiles\s+SET\s+status`).
		WithArgs(int64(9), "APPROVED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	now := time.Now()
	err := repo.SetStatus(context.Background(), 9, models.SellerApproved, &now)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
