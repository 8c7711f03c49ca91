package recipe

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

type PriceReader interface {
	LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error)
}

type FactorReader interface {
	ConversionFactor(ctx context.Context, unitID int64) (decimal.Decimal, error)
}

// CostSource joins the recipe, price and unit stores into one costing.Source.
type CostSource struct {
	Recipes Repository
	Prices  PriceReader
	Units   FactorReader
}

var _ costing.Source = CostSource{}

func (s CostSource) RecipeYield(ctx context.Context, recipeID int64) (decimal.NullDecimal, error) {
	return s.Recipes.RecipeYield(ctx, recipeID)
}

func (s CostSource) RecipeIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error) {
	return s.Recipes.RecipeIngredients(ctx, recipeID)
}

func (s CostSource) UnitConversionFactor(ctx context.Context, unitID int64) (decimal.Decimal, error) {
	return s.Units.ConversionFactor(ctx, unitID)
}

func (s CostSource) LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error) {
	return s.Prices.LatestPrice(ctx, ref)
}
