package products

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetByIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "stock"}).
		AddRow(int64(1), int64(7), "Book", 19.9, int64(5)).
		AddRow(int64(2), int64(8), "Pen", 2.5, int64(100))
	mock.ExpectQuery(`FROM\s+products\s+WHERE\s+id\s+IN\s+\(\$1,\s*\$2\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(rows)

	got, err := repo.GetByIDs(context.Background(), []int64{1, 2})
	if err != nil {
		t.Fatalf("GetByIDs error: %v", err)
	}
	if len(got) != 2 || got[0].SellerID != 7 || got[1].Name != "Pen" {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestGetByIDs_Empty(t *testing.T) {
	repo, _, db := newRepoWithMock(t)
	defer db.Close()

	got, err := repo.GetByIDs(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil result for empty input, got %v, %v", got, err)
	}
}

func TestListBySeller(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "price", "stock"}).
		AddRow(int64(1), int64(7), "Book", 19.9, int64(5))
	mock.ExpectQuery(`FROM\s+products\s+WHERE\s+seller_id\s*=\s*\$1`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := repo.ListBySeller(context.Background(), 7)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected result: %v, %v", got, err)
	}
}

func TestDecrementStock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `UPDATE\s+products\s+SET\s+stock\s*=\s*stock\s*-\s*\$2\s+WHERE\s+id\s*=\s*\$1\s+AND\s+stock\s*>=\s*\$2`

	mock.ExpectExec(q).WithArgs(int64(1), int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(1), int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DecrementStock(context.Background(), 1, 3)
	if err != nil || !ok {
		t.Fatalf("expected decrement to succeed, got ok=%v err=%v", ok, err)
	}
	ok, err = repo.DecrementStock(context.Background(), 1, 99)
	if err != nil || ok {
		t.Fatalf("expected insufficient stock, got ok=%v err=%v", ok, err)
	}
}
