package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/paramashop/internal/common"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/auth"
	"github.com/dmitrijs2005/paramashop/internal/server/config"
	"github.com/dmitrijs2005/paramashop/internal/server/models"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/repomanager"
)

// AuthzService gates privileged operations on the caller's resolved role.
// It is called explicitly at the top of each privileged handler; there is
// no implicit wrapping.
type AuthzService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	jwtSecret   []byte
}

func NewAuthzService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *AuthzService {
	return &AuthzService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "authz_service"),
		jwtSecret:   []byte(cfg.SecretKey),
	}
}

// Authorize validates the session token, resolves the caller's role, and
// compares it to required. On success it returns the caller's user id.
//
// This is a fail-closed boundary: any unexpected fault during resolution
// is logged and downgraded to common.ErrorInternal so internals never
// leak to the caller.
func (s *AuthzService) Authorize(ctx context.Context, token string, required models.Role) (userID int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic during authorization", "panic", r)
			userID, err = 0, common.ErrorInternal
		}
	}()

	userID, err = auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return 0, common.ErrorUnauthorized
	}

	if err := s.AuthorizeUser(ctx, userID, required); err != nil {
		return 0, err
	}
	return userID, nil
}

// AuthorizeUser checks an already-authenticated user id against required.
// Both "seller profile missing" and "approval pending" are access-denial
// outcomes, distinguishable only by message.
func (s *AuthzService) AuthorizeUser(ctx context.Context, userID int64, required models.Role) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.logger.Error(ctx, "role resolution failed", "user_id", userID, "error", err)
		return common.ErrorInternal
	}

	if user.Role != required {
		return fmt.Errorf("%w: role mismatch", common.ErrAccessDenied)
	}

	if required == models.RoleSeller {
		profile, err := s.repomanager.Sellers(s.db).GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: seller profile not found", common.ErrAccessDenied)
			}
			s.logger.Error(ctx, "seller profile resolution failed", "user_id", userID, "error", err)
			return common.ErrorInternal
		}
		if profile.Status != models.SellerApproved {
			return fmt.Errorf("%w: seller approval pending", common.ErrAccessDenied)
		}
	}

	return nil
}
