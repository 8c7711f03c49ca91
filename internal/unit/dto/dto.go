package dto

type UnitFilters struct {
	UnitType string
	Page     int
	PageSize int
}
