// Package costing resolves recipe costs over the recipe/sub-recipe graph and
// guards that graph against cycles.
package costing

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

// EdgeReader lists the sub-recipes referenced by a recipe's ingredients.
// Implementations return a NotFound error when the recipe does not exist.
type EdgeReader interface {
	SubRecipeEdges(ctx context.Context, recipeID int64) ([]int64, error)
}

// Source is the read side the resolver needs. Every lookup returns a NotFound
// error when the referenced row does not exist. RecipeYield returns an invalid
// NullDecimal for a recipe without a yield; judging the value is up to the caller.
type Source interface {
	RecipeYield(ctx context.Context, recipeID int64) (decimal.NullDecimal, error)
	RecipeIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error)
	UnitConversionFactor(ctx context.Context, unitID int64) (decimal.Decimal, error)
	LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error)
}
