package products

import (
	"context"

	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error)
	DecrementStock(ctx context.Context, id int64, qty int64) (bool, error)
}
