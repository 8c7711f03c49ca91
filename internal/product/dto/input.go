package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateProductInput struct {
	Name          string  `json:"product_name"`
	Category      *string `json:"category"`
	DefaultUnitID *int64  `json:"default_unit_id"`
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	ID               int64   `json:"-"`
	Name             *string `json:"product_name"`
	Category         *string `json:"category"`
	DefaultUnitID    *int64  `json:"default_unit_id"`
	DefaultVariantID *int64  `json:"default_variant_id"`
}

type CreateVariantInput struct {
	ProductID   int64           `json:"-"`
	BrandID     *int64          `json:"brand_id"`
	SupplierID  *int64          `json:"supplier_id"`
	PackageSize decimal.Decimal `json:"package_size"`
	UnitID      int64           `json:"unit_id"`
	UPC         *string         `json:"upc"`
}

type RecordPriceInput struct {
	VariantID int64           `json:"-"`
	Price     decimal.Decimal `json:"price"`
	PriceDate *time.Time      `json:"price_date"` // defaults to now
}
