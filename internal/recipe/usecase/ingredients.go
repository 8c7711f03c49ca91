package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"go.uber.org/zap"
)

func (uc *recipeUseCase) AddIngredients(ctx context.Context, recipeID int64, inputs []dto.IngredientInput) ([]model.RecipeIngredient, error) {
	if len(inputs) == 0 {
		return nil, apperror.InvalidRequest("at least one ingredient is required")
	}

	var added []model.RecipeIngredient
	err := uc.repo.WithTx(ctx, func(tx recipe.Repository) error {
		rec, err := tx.FindByID(ctx, recipeID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperror.NotFound("recipe %d not found", recipeID)
		}
		added, err = uc.addIngredients(ctx, tx, recipeID, inputs)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateCosts(ctx)
	go uc.publish(context.Background(), dto.EventIngredientsChanged, recipeID, ingredientIDs(added))

	return added, nil
}

// addIngredients validates and inserts a batch inside tx. Rows are inserted
// one at a time so later cycle checks in the batch see earlier edges.
func (uc *recipeUseCase) addIngredients(ctx context.Context, tx recipe.Repository, recipeID int64, inputs []dto.IngredientInput) ([]model.RecipeIngredient, error) {
	guard := costing.NewGuard(tx)
	added := make([]model.RecipeIngredient, 0, len(inputs))

	for i, in := range inputs {
		ing := model.RecipeIngredient{
			RecipeID:    recipeID,
			ProductID:   in.ProductID,
			SubRecipeID: in.SubRecipeID,
			VariantID:   in.VariantID,
			Quantity:    in.Quantity,
			UnitID:      in.UnitID,
		}
		if err := uc.checkIngredient(ctx, tx, guard, &ing, true); err != nil {
			return nil, atIndex(i, err)
		}
		if err := tx.AddIngredient(ctx, &ing); err != nil {
			return nil, atIndex(i, err)
		}
		added = append(added, ing)
	}
	return added, nil
}

func (uc *recipeUseCase) UpdateIngredient(ctx context.Context, input *dto.UpdateIngredientInput) (*model.RecipeIngredient, error) {
	if input.ProductID == nil && input.SubRecipeID == nil && input.VariantID == nil &&
		input.Quantity == nil && input.UnitID == nil {
		return nil, apperror.InvalidRequest("no fields to update")
	}
	if input.ProductID != nil && input.SubRecipeID != nil {
		return nil, apperror.New(apperror.CodeConstraintViolation,
			"an ingredient references either a product or a sub-recipe, not both")
	}

	var updated *model.RecipeIngredient
	err := uc.repo.WithTx(ctx, func(tx recipe.Repository) error {
		ing, err := tx.FindIngredient(ctx, input.RecipeID, input.IngredientID)
		if err != nil {
			return err
		}
		if ing == nil {
			return apperror.NotFound("ingredient %d not found on recipe %d", input.IngredientID, input.RecipeID)
		}

		newEdge := mergeIngredient(ing, input)
		if err := uc.checkIngredient(ctx, tx, costing.NewGuard(tx), ing, newEdge); err != nil {
			return err
		}
		if err := tx.UpdateIngredient(ctx, ing); err != nil {
			return err
		}
		updated = ing
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateCosts(ctx)
	go uc.publish(context.Background(), dto.EventIngredientsChanged, input.RecipeID, []int64{updated.ID})

	return updated, nil
}

// mergeIngredient applies a partial update and reports whether the row now
// points at a sub-recipe it did not point at before.
func mergeIngredient(ing *model.RecipeIngredient, in *dto.UpdateIngredientInput) bool {
	prevSub := ing.SubRecipeID

	switch {
	case in.ProductID != nil:
		if ing.ProductID == nil || *ing.ProductID != *in.ProductID {
			// The old variant belonged to the old product.
			ing.VariantID = nil
		}
		ing.ProductID = in.ProductID
		ing.SubRecipeID = nil
	case in.SubRecipeID != nil:
		ing.SubRecipeID = in.SubRecipeID
		ing.ProductID = nil
		ing.VariantID = nil
	}
	if in.VariantID != nil {
		ing.VariantID = in.VariantID
	}
	if in.Quantity != nil {
		ing.Quantity = *in.Quantity
	}
	if in.UnitID != nil {
		ing.UnitID = *in.UnitID
	}

	return ing.SubRecipeID != nil && (prevSub == nil || *prevSub != *ing.SubRecipeID)
}

func (uc *recipeUseCase) DeleteIngredient(ctx context.Context, recipeID, ingredientID int64) error {
	ing, err := uc.repo.FindIngredient(ctx, recipeID, ingredientID)
	if err != nil {
		return err
	}
	if ing == nil {
		return apperror.NotFound("ingredient %d not found on recipe %d", ingredientID, recipeID)
	}
	if err := uc.repo.DeleteIngredient(ctx, recipeID, ingredientID); err != nil {
		return err
	}

	uc.invalidateCosts(ctx)
	go uc.publish(context.Background(), dto.EventIngredientsChanged, recipeID, []int64{ingredientID})
	return nil
}

// checkIngredient validates one row against the database. checkCycle runs
// the guard when the row adds a sub-recipe edge.
func (uc *recipeUseCase) checkIngredient(ctx context.Context, tx recipe.Repository, guard *costing.Guard, ing *model.RecipeIngredient, checkCycle bool) error {
	ref, err := ing.Ref()
	if err != nil {
		return apperror.Wrap(apperror.CodeConstraintViolation, err.Error(), err)
	}
	if !ing.Quantity.IsPositive() {
		return apperror.InvalidRequest("quantity must be greater than zero")
	}

	ok, err := tx.UnitExists(ctx, ing.UnitID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("unit %d not found", ing.UnitID)
	}

	switch ref := ref.(type) {
	case model.ProductRef:
		ok, err := tx.ProductExists(ctx, ref.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NotFound("product %d not found", ref.ProductID)
		}
		if ref.VariantID != nil {
			owner, err := tx.VariantProductID(ctx, *ref.VariantID)
			if err != nil {
				return err
			}
			if owner == nil {
				return apperror.NotFound("variant %d not found", *ref.VariantID)
			}
			if *owner != ref.ProductID {
				return apperror.Newf(apperror.CodeConstraintViolation,
					"variant %d does not belong to product %d", *ref.VariantID, ref.ProductID)
			}
		}

	case model.SubRecipeRef:
		if ing.VariantID != nil {
			return apperror.New(apperror.CodeConstraintViolation, "a sub-recipe ingredient cannot have a variant")
		}
		if checkCycle {
			if err := guard.Check(ctx, ing.RecipeID, ref.RecipeID); err != nil {
				if apperror.Is(err, apperror.CodeCycleRejected) {
					uc.logger.Warn("rejected sub-recipe edge",
						zap.Int64("recipe_id", ing.RecipeID),
						zap.Int64("sub_recipe_id", ref.RecipeID),
					)
				}
				return err
			}
		}
	}
	return nil
}

func atIndex(i int, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		appErr.WithContext("ingredient_index", i)
	}
	return fmt.Errorf("ingredient %d: %w", i, err)
}
