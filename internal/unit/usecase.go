package unit

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/unit/dto"
)

type UseCase interface {
	CreateUnit(ctx context.Context, input *dto.CreateUnitInput) (*model.Unit, error)
	GetUnit(ctx context.Context, id int64) (*model.Unit, error)
	ListUnits(ctx context.Context, filters *dto.UnitFilters) ([]model.Unit, int, error)
	UpdateUnit(ctx context.Context, input *dto.UpdateUnitInput) (*model.Unit, error)
	DeleteUnit(ctx context.Context, id int64) error
}
