package users

import (
	"context"

	"github.com/dmitrijs2005/paramashop/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, id int64, role models.Role) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
}
