package recipe

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/shopspring/decimal"
)

type UseCase interface {
	CreateRecipe(ctx context.Context, input *dto.CreateRecipeInput) (*model.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filters *dto.RecipeFilters) ([]model.Recipe, int, error)
	UpdateRecipe(ctx context.Context, input *dto.UpdateRecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error

	// Ingredient ops. Every write that adds a sub-recipe edge is cycle checked
	// in the same transaction as the write.
	AddIngredients(ctx context.Context, recipeID int64, inputs []dto.IngredientInput) ([]model.RecipeIngredient, error)
	UpdateIngredient(ctx context.Context, input *dto.UpdateIngredientInput) (*model.RecipeIngredient, error)
	DeleteIngredient(ctx context.Context, recipeID, ingredientID int64) error

	// Costing
	GetCost(ctx context.Context, recipeID int64) (*costing.Breakdown, error)
	GetCostPerUnit(ctx context.Context, recipeID int64) (decimal.Decimal, error)
	CheckCycle(ctx context.Context, recipeID, subRecipeID int64) (*dto.CycleCheck, error)
}
