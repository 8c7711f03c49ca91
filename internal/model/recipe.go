package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Recipe struct {
	BaseModel
	ID           int64               `db:"recipe_id" json:"recipe_id"`
	Name         string              `db:"recipe_name" json:"recipe_name"`
	Instructions *string             `db:"instructions" json:"instructions"`
	Yield        decimal.NullDecimal `db:"yield" json:"yield"`
	Ingredients  []RecipeIngredient  `db:"-" json:"ingredients,omitempty"`
}

// HasValidYield reports whether a per-unit cost can be derived from the recipe.
func (r *Recipe) HasValidYield() bool {
	return r.Yield.Valid && r.Yield.Decimal.IsPositive()
}

// RecipeIngredient is the row shape of recipe_ingredients. Exactly one of
// ProductID and SubRecipeID is set; use Ref to get the checked reference.
type RecipeIngredient struct {
	ID          int64           `db:"recipe_ingredient_id" json:"recipe_ingredient_id"`
	RecipeID    int64           `db:"recipe_id" json:"recipe_id"`
	ProductID   *int64          `db:"product_id" json:"product_id"`
	SubRecipeID *int64          `db:"sub_recipe_id" json:"sub_recipe_id"`
	VariantID   *int64          `db:"variant_id" json:"variant_id"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitID      int64           `db:"unit_id" json:"unit_id"`

	// Display columns filled by joins on read paths.
	ProductName   *string `db:"product_name" json:"product_name,omitempty"`
	SubRecipeName *string `db:"sub_recipe_name" json:"sub_recipe_name,omitempty"`
	UnitName      *string `db:"unit_name" json:"unit_name,omitempty"`
}

// IngredientRef is either a ProductRef or a SubRecipeRef.
type IngredientRef interface {
	isIngredientRef()
}

type ProductRef struct {
	ProductID int64
	VariantID *int64
}

type SubRecipeRef struct {
	RecipeID int64
}

func (ProductRef) isIngredientRef()   {}
func (SubRecipeRef) isIngredientRef() {}

// ErrAmbiguousRef is returned by Ref when both or neither reference is set.
type ErrAmbiguousRef struct {
	IngredientID int64
	Both         bool
}

func (e *ErrAmbiguousRef) Error() string {
	if e.Both {
		return fmt.Sprintf("ingredient %d references both a product and a sub-recipe", e.IngredientID)
	}
	return fmt.Sprintf("ingredient %d references neither a product nor a sub-recipe", e.IngredientID)
}

func (i *RecipeIngredient) Ref() (IngredientRef, error) {
	switch {
	case i.ProductID != nil && i.SubRecipeID != nil:
		return nil, &ErrAmbiguousRef{IngredientID: i.ID, Both: true}
	case i.ProductID != nil:
		return ProductRef{ProductID: *i.ProductID, VariantID: i.VariantID}, nil
	case i.SubRecipeID != nil:
		return SubRecipeRef{RecipeID: *i.SubRecipeID}, nil
	default:
		return nil, &ErrAmbiguousRef{IngredientID: i.ID}
	}
}
