package dto

import "github.com/shopspring/decimal"

type CreateUnitInput struct {
	Name                   string          `json:"unit_name"`
	UnitType               string          `json:"unit_type"`
	ConversionFactorToBase decimal.Decimal `json:"conversion_factor_to_base"`
}

// UpdateUnitInput is a partial update; nil fields are left unchanged.
type UpdateUnitInput struct {
	ID                     int64            `json:"-"`
	Name                   *string          `json:"unit_name"`
	UnitType               *string          `json:"unit_type"`
	ConversionFactorToBase *decimal.Decimal `json:"conversion_factor_to_base"`
}
