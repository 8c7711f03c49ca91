package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/unit"
	"github.com/fekuna/omnipos-catalog-service/internal/unit/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxFactorScale is the number of fractional digits the factor column keeps.
const maxFactorScale = 18

var unitTypes = map[string]bool{"mass": true, "volume": true, "count": true, "length": true}

type unitUseCase struct {
	repo   unit.Repository
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

func NewUnitUseCase(repo unit.Repository, cache *cache.RedisClient, log logger.ZapLogger) unit.UseCase {
	return &unitUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (uc *unitUseCase) CreateUnit(ctx context.Context, input *dto.CreateUnitInput) (*model.Unit, error) {
	name := normalizeName(input.Name)
	unitType := strings.ToLower(strings.TrimSpace(input.UnitType))
	if err := validate(name, unitType, input.ConversionFactorToBase); err != nil {
		return nil, err
	}
	if err := uc.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &model.Unit{
		BaseModel:              model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:                   name,
		UnitType:               unitType,
		ConversionFactorToBase: input.ConversionFactorToBase,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *unitUseCase) GetUnit(ctx context.Context, id int64) (*model.Unit, error) {
	u, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NotFound("unit %d not found", id)
	}
	return u, nil
}

func (uc *unitUseCase) ListUnits(ctx context.Context, filters *dto.UnitFilters) ([]model.Unit, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *unitUseCase) UpdateUnit(ctx context.Context, input *dto.UpdateUnitInput) (*model.Unit, error) {
	if input.Name == nil && input.UnitType == nil && input.ConversionFactorToBase == nil {
		return nil, apperror.InvalidRequest("no fields to update")
	}

	u, err := uc.GetUnit(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	factorChanged := false
	if input.Name != nil {
		u.Name = normalizeName(*input.Name)
	}
	if input.UnitType != nil {
		u.UnitType = strings.ToLower(strings.TrimSpace(*input.UnitType))
	}
	if input.ConversionFactorToBase != nil {
		factorChanged = !u.ConversionFactorToBase.Equal(*input.ConversionFactorToBase)
		u.ConversionFactorToBase = *input.ConversionFactorToBase
	}
	if err := validate(u.Name, u.UnitType, u.ConversionFactorToBase); err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := uc.ensureNameFree(ctx, u.Name, u.ID); err != nil {
			return nil, err
		}
	}

	u.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if factorChanged {
		uc.invalidateCosts(ctx)
	}
	return u, nil
}

func (uc *unitUseCase) DeleteUnit(ctx context.Context, id int64) error {
	if _, err := uc.GetUnit(ctx, id); err != nil {
		return err
	}
	inUse, err := uc.repo.IsInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperror.Newf(apperror.CodeConstraintViolation, "unit %d is still referenced", id)
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *unitUseCase) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := uc.repo.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return apperror.Newf(apperror.CodeConstraintViolation, "unit %q already exists", name)
	}
	return nil
}

func (uc *unitUseCase) invalidateCosts(ctx context.Context) {
	if err := uc.cache.InvalidateRecipeCosts(ctx); err != nil {
		uc.logger.Warn("failed to invalidate recipe costs", zap.Error(err))
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validate(name, unitType string, factor decimal.Decimal) error {
	if name == "" {
		return apperror.InvalidRequest("unit_name is required")
	}
	if len(name) > 50 {
		return apperror.InvalidRequest("unit_name must be at most 50 characters")
	}
	if !unitTypes[unitType] {
		return apperror.InvalidRequest("unit_type must be one of mass, volume, count, length")
	}
	if !factor.IsPositive() {
		return apperror.InvalidRequest("conversion_factor_to_base must be greater than zero")
	}
	if factor.Exponent() < -maxFactorScale && !factor.Equal(factor.Truncate(maxFactorScale)) {
		return apperror.InvalidRequest("conversion_factor_to_base allows at most %d decimal places", maxFactorScale)
	}
	return nil
}
