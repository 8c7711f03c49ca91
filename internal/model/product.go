package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	ID               int64            `db:"product_id" json:"product_id"`
	Name             string           `db:"product_name" json:"product_name"`
	Category         *string          `db:"category" json:"category"`
	DefaultUnitID    *int64           `db:"default_unit_id" json:"default_unit_id"`
	DefaultVariantID *int64           `db:"default_variant_id" json:"default_variant_id"`
	Variants         []ProductVariant `db:"-" json:"variants,omitempty"`
}

type ProductVariant struct {
	BaseModel
	ID          int64           `db:"variant_id" json:"variant_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	BrandID     *int64          `db:"brand_id" json:"brand_id"`
	SupplierID  *int64          `db:"supplier_id" json:"supplier_id"`
	PackageSize decimal.Decimal `db:"package_size" json:"package_size"`
	UnitID      int64           `db:"unit_id" json:"unit_id"`
	UPC         *string         `db:"upc" json:"upc"`
}

// ProductPrice is one entry of a variant's price history. The current price is
// the entry with the latest PriceDate. Price is per base unit.
type ProductPrice struct {
	ID        int64           `db:"price_id" json:"price_id"`
	VariantID int64           `db:"variant_id" json:"variant_id"`
	Price     decimal.Decimal `db:"price" json:"price"`
	PriceDate time.Time       `db:"price_date" json:"price_date"`
}
