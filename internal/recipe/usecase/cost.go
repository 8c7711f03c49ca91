package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// resolveTimeout bounds a shared cost resolution, which outlives any single
// caller's context.
const resolveTimeout = 30 * time.Second

// GetCost returns the cost breakdown of one batch of the recipe. Results are
// cached until the next graph, price or unit change; concurrent misses for
// the same recipe share one resolution.
func (uc *recipeUseCase) GetCost(ctx context.Context, recipeID int64) (*costing.Breakdown, error) {
	key := cache.CostKey(recipeID)

	var cached costing.Breakdown
	ok, err := uc.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		uc.logger.Warn("recipe cost cache read failed", zap.Int64("recipe_id", recipeID), zap.Error(err))
	}
	if ok {
		return &cached, nil
	}

	ch := uc.flight.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()

		b, err := uc.resolver.Breakdown(sctx, recipeID)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.SetJSON(sctx, key, b, uc.costTTL); err != nil {
			uc.logger.Warn("recipe cost cache write failed", zap.Int64("recipe_id", recipeID), zap.Error(err))
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*costing.Breakdown), nil
	}
}

func (uc *recipeUseCase) GetCostPerUnit(ctx context.Context, recipeID int64) (decimal.Decimal, error) {
	b, err := uc.GetCost(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}
	if b.CostPerUnit == nil {
		return decimal.Zero, apperror.Newf(apperror.CodeInvalidYield, "recipe %d has no positive yield", recipeID)
	}
	return *b.CostPerUnit, nil
}

func (uc *recipeUseCase) CheckCycle(ctx context.Context, recipeID, subRecipeID int64) (*dto.CycleCheck, error) {
	rec, err := uc.repo.FindByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.NotFound("recipe %d not found", recipeID)
	}

	cycle, err := costing.NewGuard(uc.repo).FindCycle(ctx, recipeID, subRecipeID)
	if err != nil {
		return nil, err
	}
	return &dto.CycleCheck{
		RecipeID:         recipeID,
		SubRecipeID:      subRecipeID,
		WouldCreateCycle: cycle != nil,
		Cycle:            cycle,
	}, nil
}
