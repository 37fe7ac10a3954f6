// Package services contains server-side business logic. This file
// implements OTPService: issuing one-time codes, delivering them out of
// band, and exchanging a valid code for a session credential.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/auth"
	"github.com/dmitrijs2005/paramashop/internal/server/config"
	"github.com/dmitrijs2005/paramashop/internal/server/mail"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// IssueReceipt is returned from Issue. Delivered reports whether the
// out-of-band delivery succeeded; a false value is a warning signal for
// the caller, not an error.
type IssueReceipt struct {
	ReceiptID string
	UserID    int64
	ExpiresAt time.Time
	Delivered bool
}

// OTPService issues and verifies one-time codes.
//
// Per code the lifecycle is Issued -> {Consumed | Expired}; Expired is
// derived from the timestamp at verification time, never stored.
type OTPService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	mailer          mail.Mailer
	logger          logging.Logger
	jwtSecret       []byte
	sessionValidity time.Duration
	otpValidity     time.Duration
	bypass          bool

	now func() time.Time
}

func NewOTPService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, logger logging.Logger, cfg *config.Config) *OTPService {
	return &OTPService{
		db:              db,
		repomanager:     m,
		mailer:          mailer,
		logger:          logger.With("module", "otp_service"),
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionValidityDuration,
		otpValidity:     cfg.OTPValidityDuration,
		bypass:          cfg.OTPBypass,
		now:             time.Now,
	}
}

// Issue generates a fresh 6-digit code for the user, persists it with a
// two-minute expiry, and attempts email delivery. Delivery failure is
// logged and reflected in the receipt but never fails the issuance.
func (s *OTPService) Issue(ctx context.Context, user *models.User) (*IssueReceipt, error) {
	code, err := common.MakeOTPCode()
	if err != nil {
		return nil, common.ErrorInternal
	}

	expiry := s.now().UTC().Add(s.otpValidity)
	repo := s.repomanager.OTPCodes(s.db)
	rec, err := repo.Create(ctx, user.ID, code, expiry)
	if err != nil {
		return nil, fmt.Errorf("error saving otp code: %w", err)
	}

	delivered := true
	if err := s.mailer.Send(ctx, user.Email, "Your ParamaShop OTP Code", otpEmailBody(user.Name, code, s.otpValidity)); err != nil {
		s.logger.Warn(ctx, "OTP email send failed", "user_id", user.ID, "error", err)
		delivered = false
	}

	return &IssueReceipt{
		ReceiptID: uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: rec.Expiry,
		Delivered: delivered,
	}, nil
}

// Verify exchanges a submitted code for a session token. It selects the
// most recently issued unconsumed code for the user and fails with
// ErrInvalidCode when none exists, the value mismatches, or the code was
// already consumed (including by a concurrent verification), and with
// ErrCodeExpired when the code is past its expiry.
func (s *OTPService) Verify(ctx context.Context, userID int64, code string) (string, error) {
	if err := s.confirmCode(ctx, userID, code); err != nil {
		return "", err
	}
	return s.issueSession(userID)
}

// confirmCode validates and consumes the user's latest code. It is shared
// by session verification and the password-reset flow, so both spend the
// code through the same serialization point.
func (s *OTPService) confirmCode(ctx context.Context, userID int64, code string) error {
	if s.bypass {
		s.logger.Warn(ctx, "OTP verification bypassed by configuration", "user_id", userID)
		return nil
	}

	repo := s.repomanager.OTPCodes(s.db)
	rec, err := repo.LatestUnconsumed(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidCode
		}
		return common.ErrorInternal
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return common.ErrInvalidCode
	}
	if s.now().UTC().After(rec.Expiry) {
		return common.ErrCodeExpired
	}

	// The conditional update is the serialization point: when two
	// verifications race on the same row, exactly one sees consumed=true
	// flip and the other fails as if the code were already spent.
	consumed, err := repo.Consume(ctx, rec.ID)
	if err != nil {
		return common.ErrorInternal
	}
	if !consumed {
		return common.ErrInvalidCode
	}
	return nil
}

func (s *OTPService) issueSession(userID int64) (string, error) {
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.sessionValidity)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

func otpEmailBody(name, code string, validity time.Duration) string {
	return fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your ParamaShop one-time code is: %s\n\n"+
			"It expires in %d minutes.\n\n"+
			"If you did not request this, please ignore this email or contact support.\n\n"+
			"Stay secure,\nParamaShop Security Team",
		name, code, int(validity.Minutes()))
}
