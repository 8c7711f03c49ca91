package recipe

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, recipe *model.Recipe) error
	FindByID(ctx context.Context, id int64) (*model.Recipe, error)
	FindAll(ctx context.Context, filters *dto.RecipeFilters) ([]model.Recipe, int, error)
	Update(ctx context.Context, recipe *model.Recipe) error
	Delete(ctx context.Context, id int64) error
	// ParentsOf lists the recipes that use id as a sub-recipe.
	ParentsOf(ctx context.Context, id int64) ([]int64, error)

	// ListIngredients returns the rows of a recipe with display names joined in.
	ListIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error)
	FindIngredient(ctx context.Context, recipeID, ingredientID int64) (*model.RecipeIngredient, error)
	AddIngredient(ctx context.Context, ingredient *model.RecipeIngredient) error
	UpdateIngredient(ctx context.Context, ingredient *model.RecipeIngredient) error
	DeleteIngredient(ctx context.Context, recipeID, ingredientID int64) error

	// Reference checks for ingredient writes.
	UnitExists(ctx context.Context, id int64) (bool, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
	// VariantProductID returns the product owning a variant, or nil when the variant does not exist.
	VariantProductID(ctx context.Context, variantID int64) (*int64, error)

	// Graph reads. Each returns a NotFound error when the recipe does not exist.
	RecipeYield(ctx context.Context, recipeID int64) (decimal.NullDecimal, error)
	RecipeIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error)
	SubRecipeEdges(ctx context.Context, recipeID int64) ([]int64, error)

	// WithTx runs fn against a repository bound to one transaction. Graph
	// writers are serialized for the duration of the transaction.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
