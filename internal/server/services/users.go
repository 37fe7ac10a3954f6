package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/cryptox"
	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/repomanager"
)

// UserService handles registration (buyer and seller), credential login,
// and seller approval transitions. Every authentication path ends in an
// OTP issuance; only OTPService.Verify mints session credentials.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	otp         *OTPService
	logger      logging.Logger

	now func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, otp *OTPService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		otp:         otp,
		logger:      logger.With("module", "user_service"),
		now:         time.Now,
	}
}

// Register creates a buyer account and issues the first OTP.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, *IssueReceipt, error) {
	if name == "" || email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleUser}
	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%w: email already registered", common.ErrAlreadyExists)
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	receipt, err := s.otp.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, receipt, nil
}

// RegisterSeller creates an account plus a PENDING seller profile in one
// transaction. The account keeps the USER role until an admin approves
// the profile.
func (s *UserService) RegisterSeller(ctx context.Context, name, email, password string, profile *models.SellerProfile) (*models.User, *IssueReceipt, error) {
	if name == "" || email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: name, email, and password are required", common.ErrValidation)
	}
	if profile == nil || profile.ShopName == "" || profile.Phone == "" || profile.Address == "" || profile.Category == "" {
		return nil, nil, fmt.Errorf("%w: shop name, phone, address, and category are required", common.ErrValidation)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleUser}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Users(tx).Create(ctx, user)
		if err != nil {
			return err
		}
		profile.UserID = created.ID
		profile.Status = models.SellerPending
		_, err = s.repomanager.Sellers(tx).Create(ctx, profile)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, nil, fmt.Errorf("%w: email already registered", common.ErrAlreadyExists)
		}
		return nil, nil, fmt.Errorf("error creating seller: %w", err)
	}

	receipt, err := s.otp.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, receipt, nil
}

// Login verifies the submitted credentials and, on success, issues an
// OTP. The distinction between "unknown email" and "wrong password" is
// deliberately not exposed.
func (s *UserService) Login(ctx context.Context, email, password string) (*IssueReceipt, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !cryptox.VerifyPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	return s.otp.Issue(ctx, user)
}

// ForgotPassword starts a password reset by issuing an OTP to the
// account's registered email. Unknown addresses fail with ErrorNotFound.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (*IssueReceipt, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	return s.otp.Issue(ctx, user)
}

// ResetPassword spends the account's latest reset code and replaces the
// stored credential hash. The code goes through the same atomic consume
// path as session verification, so it works exactly once.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", common.ErrValidation)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	if err := s.otp.confirmCode(ctx, user.ID, code); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.repomanager.Users(s.db).SetPasswordHash(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.logger.Info(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

// ApproveSeller marks the profile APPROVED with a timestamp and promotes
// the account to the SELLER role, transactionally.
func (s *UserService) ApproveSeller(ctx context.Context, userID int64) error {
	approvedAt := s.now().UTC()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Sellers(tx).SetStatus(ctx, userID, models.SellerApproved, &approvedAt); err != nil {
			return err
		}
		return s.repomanager.Users(tx).SetRole(ctx, userID, models.RoleSeller)
	})
}

// RejectSeller marks the profile REJECTED and clears any approval time.
func (s *UserService) RejectSeller(ctx context.Context, userID int64) error {
	return s.repomanager.Sellers(s.db).SetStatus(ctx, userID, models.SellerRejected, nil)
}
