package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/orders"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/otpcodes"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/products"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/sellers"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/users"
)

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeRepoManager vends in-memory repositories regardless of the DBTX it
// receives, so services can be exercised without a database.
type fakeRepoManager struct {
	users    *fakeUsersRepo
	sellers  *fakeSellersRepo
	otps     *fakeOTPRepo
	products *fakeProductsRepo
	orders   *fakeOrdersRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    &fakeUsersRepo{byID: map[int64]*models.User{}},
		sellers:  &fakeSellersRepo{byUserID: map[int64]*models.SellerProfile{}},
		otps:     &fakeOTPRepo{},
		products: &fakeProductsRepo{byID: map[int64]*models.Product{}},
		orders:   &fakeOrdersRepo{txnIDs: map[string]bool{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Sellers(dbx.DBTX) sellers.Repository          { return m.sellers }
func (m *fakeRepoManager) OTPCodes(dbx.DBTX) otpcodes.Repository        { return m.otps }
func (m *fakeRepoManager) Products(dbx.DBTX) products.Repository        { return m.products }
func (m *fakeRepoManager) Orders(dbx.DBTX) orders.Repository            { return m.orders }

type fakeUsersRepo struct {
	byID      map[int64]*models.User
	nextID    int64
	createErr error
	getErr    error
}

func (r *fakeUsersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = user
	return user, nil
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) SetRole(_ context.Context, id int64, role models.Role) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUsersRepo) SetPasswordHash(_ context.Context, id int64, hash string) error {
	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

type fakeSellersRepo struct {
	byUserID map[int64]*models.SellerProfile
	nextID   int64
}

func (r *fakeSellersRepo) Create(_ context.Context, p *models.SellerProfile) (*models.SellerProfile, error) {
	r.nextID++
	p.ID = r.nextID
	r.byUserID[p.UserID] = p
	return p, nil
}

func (r *fakeSellersRepo) GetByUserID(_ context.Context, userID int64) (*models.SellerProfile, error) {
	p, ok := r.byUserID[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

func (r *fakeSellersRepo) SetStatus(_ context.Context, userID int64, status models.SellerApprovalStatus, approvedAt *time.Time) error {
	p, ok := r.byUserID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	p.Status = status
	p.ApprovedAt = approvedAt
	return nil
}

type fakeOTPRepo struct {
	codes     []*models.OTPCode
	nextID    int64
	createErr error
}

func (r *fakeOTPRepo) Create(_ context.Context, userID int64, code string, expiry time.Time) (*models.OTPCode, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	rec := &models.OTPCode{ID: r.nextID, UserID: userID, Code: code, Expiry: expiry}
	r.codes = append(r.codes, rec)
	return rec, nil
}

func (r *fakeOTPRepo) LatestUnconsumed(_ context.Context, userID int64) (*models.OTPCode, error) {
	var latest *models.OTPCode
	for _, c := range r.codes {
		if c.UserID != userID || c.Consumed {
			continue
		}
		if latest == nil || c.Expiry.After(latest.Expiry) {
			latest = c
		}
	}
	if latest == nil {
		return nil, common.ErrorNotFound
	}
	return latest, nil
}

func (r *fakeOTPRepo) Consume(_ context.Context, id int64) (bool, error) {
	for _, c := range r.codes {
		if c.ID == id && !c.Consumed {
			c.Consumed = true
			return true, nil
		}
	}
	return false, nil
}

type fakeProductsRepo struct {
	byID map[int64]*models.Product
}

func (r *fakeProductsRepo) GetByIDs(_ context.Context, ids []int64) ([]*models.Product, error) {
	var result []*models.Product
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeProductsRepo) ListBySeller(_ context.Context, sellerID int64) ([]*models.Product, error) {
	var result []*models.Product
	for _, p := range r.byID {
		if p.SellerID == sellerID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeProductsRepo) DecrementStock(_ context.Context, id int64, qty int64) (bool, error) {
	p, ok := r.byID[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

type fakeOrdersRepo struct {
	stored  []*models.Order
	txnIDs  map[string]bool
	nextID  int64
	listErr error

	// conflictFirst makes the first N Creates fail with ErrAlreadyExists,
	// simulating transaction-id collisions.
	conflictFirst int
	attempts      int
}

func (r *fakeOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.attempts++
	if r.attempts <= r.conflictFirst {
		return nil, common.ErrAlreadyExists
	}
	if r.txnIDs[order.TransactionID] {
		return nil, common.ErrAlreadyExists
	}
	r.nextID++
	order.ID = r.nextID
	order.CreatedAt = time.Now().UTC()
	r.txnIDs[order.TransactionID] = true
	r.stored = append(r.stored, order)
	return order, nil
}

func (r *fakeOrdersRepo) ListByUser(_ context.Context, userID int64) ([]*models.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var result []*models.Order
	for _, o := range r.stored {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (r *fakeOrdersRepo) ListAll(_ context.Context) ([]*models.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.stored, nil
}

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}
