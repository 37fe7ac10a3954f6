package otpcodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, code string, expiry time.Time) (*models.OTPCode, error)
	LatestUnconsumed(ctx context.Context, userID int64) (*models.OTPCode, error)
	Consume(ctx context.Context, id int64) (bool, error)
}
