package model

import "github.com/shopspring/decimal"

// Unit converts quantities into the canonical base unit of its UnitType
// (mass, volume, count) through ConversionFactorToBase.
type Unit struct {
	BaseModel
	ID                     int64           `db:"unit_id" json:"unit_id"`
	Name                   string          `db:"unit_name" json:"unit_name"`
	UnitType               string          `db:"unit_type" json:"unit_type"`
	ConversionFactorToBase decimal.Decimal `db:"conversion_factor_to_base" json:"conversion_factor_to_base"`
}
