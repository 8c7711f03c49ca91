package dto

import "time"

type RecipeFilters struct {
	SearchQuery string
	Page        int
	PageSize    int
}

type CycleCheck struct {
	RecipeID         int64   `json:"recipe_id"`
	SubRecipeID      int64   `json:"sub_recipe_id"`
	WouldCreateCycle bool    `json:"would_create_cycle"`
	Cycle            []int64 `json:"cycle,omitempty"`
}

const (
	EventRecipeCreated      = "RecipeCreated"
	EventRecipeUpdated      = "RecipeUpdated"
	EventRecipeDeleted      = "RecipeDeleted"
	EventIngredientsChanged = "IngredientsChanged"
)

// RecipeEvent is published on the recipe topic after a committed change.
type RecipeEvent struct {
	EventID   string        `json:"event_id"`
	EventType string        `json:"event_type"`
	Payload   RecipePayload `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

type RecipePayload struct {
	RecipeID      int64   `json:"recipe_id"`
	IngredientIDs []int64 `json:"ingredient_ids,omitempty"`
}
