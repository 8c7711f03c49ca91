package unit

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/unit/dto"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, unit *model.Unit) error
	FindByID(ctx context.Context, id int64) (*model.Unit, error)
	FindByName(ctx context.Context, name string) (*model.Unit, error)
	FindAll(ctx context.Context, filters *dto.UnitFilters) ([]model.Unit, int, error)
	Update(ctx context.Context, unit *model.Unit) error
	Delete(ctx context.Context, id int64) error
	IsInUse(ctx context.Context, id int64) (bool, error)
	// ConversionFactor returns a NotFound error when the unit does not exist.
	ConversionFactor(ctx context.Context, id int64) (decimal.Decimal, error)
}
