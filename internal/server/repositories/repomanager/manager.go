package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/paramashop/internal/dbx"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/orders"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/otpcodes"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/products"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/sellers"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sellers(db dbx.DBTX) sellers.Repository
	OTPCodes(db dbx.DBTX) otpcodes.Repository
	Products(db dbx.DBTX) products.Repository
	Orders(db dbx.DBTX) orders.Repository
}
