package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id int64) error
	IsInUse(ctx context.Context, id int64) (bool, error)

	CreateVariant(ctx context.Context, variant *model.ProductVariant) error
	FindVariantByID(ctx context.Context, id int64) (*model.ProductVariant, error)
	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	DeleteVariant(ctx context.Context, id int64) error
	IsVariantInUse(ctx context.Context, id int64) (bool, error)

	RecordPrice(ctx context.Context, price *model.ProductPrice) error
	LatestVariantPrice(ctx context.Context, variantID int64) (*model.ProductPrice, error)
	ListPrices(ctx context.Context, variantID int64, limit int) ([]model.ProductPrice, error)

	// LatestPrice resolves the current price of a variant, or of any variant
	// of the product when no variant is given. It returns a NotFound error
	// when no price has been recorded.
	LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error)
}
