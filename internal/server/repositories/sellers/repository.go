package sellers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, profile *models.SellerProfile) (*models.SellerProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*models.SellerProfile, error)
	SetStatus(ctx context.Context, userID int64, status models.SellerApprovalStatus, approvedAt *time.Time) error
}
