package dto

import "github.com/shopspring/decimal"

type CreateRecipeInput struct {
	Name         string              `json:"recipe_name"`
	Instructions *string             `json:"instructions"`
	Yield        decimal.NullDecimal `json:"yield"`
	Ingredients  []IngredientInput   `json:"ingredients"`
}

// UpdateRecipeInput is a partial update; nil fields are left unchanged.
type UpdateRecipeInput struct {
	ID           int64         `json:"-"`
	Name         *string       `json:"recipe_name"`
	Instructions *string       `json:"instructions"`
	Yield        OptionalYield `json:"yield"`
}

// OptionalYield tells an absent yield apart from an explicit null, which clears it.
type OptionalYield struct {
	Set   bool
	Value decimal.NullDecimal
}

func (o *OptionalYield) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

type IngredientInput struct {
	ProductID   *int64          `json:"product_id"`
	SubRecipeID *int64          `json:"sub_recipe_id"`
	VariantID   *int64          `json:"variant_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitID      int64           `json:"unit_id"`
}

// UpdateIngredientInput is a partial update of one ingredient row. Setting
// ProductID turns the row into a product ingredient and setting SubRecipeID
// turns it into a sub-recipe ingredient; setting both is rejected.
type UpdateIngredientInput struct {
	RecipeID     int64            `json:"-"`
	IngredientID int64            `json:"-"`
	ProductID    *int64           `json:"product_id"`
	SubRecipeID  *int64           `json:"sub_recipe_id"`
	VariantID    *int64           `json:"variant_id"`
	Quantity     *decimal.Decimal `json:"quantity"`
	UnitID       *int64           `json:"unit_id"`
}
