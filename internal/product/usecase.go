package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Variant ops
	AddVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error)
	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	DeleteVariant(ctx context.Context, productID, variantID int64) error

	// Price ops
	RecordPrice(ctx context.Context, input *dto.RecordPriceInput) (*model.ProductPrice, error)
	GetLatestPrice(ctx context.Context, variantID int64) (*model.ProductPrice, error)
	ListPrices(ctx context.Context, variantID int64, limit int) ([]model.ProductPrice, error)
}
