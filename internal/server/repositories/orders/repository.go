package orders

import (
	"context"

	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	ListAll(ctx context.Context) ([]*models.Order, error)
}
