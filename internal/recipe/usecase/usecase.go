package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/costing"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const maxNameLength = 200

type recipeUseCase struct {
	repo     recipe.Repository
	resolver *costing.Resolver
	cache    *cache.RedisClient
	producer *broker.KafkaProducer
	costTTL  time.Duration
	flight   singleflight.Group
	logger   logger.ZapLogger
}

func NewRecipeUseCase(
	repo recipe.Repository,
	resolver *costing.Resolver,
	cache *cache.RedisClient,
	producer *broker.KafkaProducer,
	costTTL time.Duration,
	log logger.ZapLogger,
) recipe.UseCase {
	return &recipeUseCase{
		repo:     repo,
		resolver: resolver,
		cache:    cache,
		producer: producer,
		costTTL:  costTTL,
		logger:   log,
	}
}

func (uc *recipeUseCase) CreateRecipe(ctx context.Context, input *dto.CreateRecipeInput) (*model.Recipe, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateYield(input.Yield); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &model.Recipe{
		BaseModel:    model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:         name,
		Instructions: input.Instructions,
		Yield:        input.Yield,
	}

	// The recipe row and its ingredients commit together or not at all.
	err = uc.repo.WithTx(ctx, func(tx recipe.Repository) error {
		if err := tx.Create(ctx, rec); err != nil {
			return err
		}
		ingredients, err := uc.addIngredients(ctx, tx, rec.ID, input.Ingredients)
		if err != nil {
			return err
		}
		rec.Ingredients = ingredients
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("recipe created",
		zap.Int64("recipe_id", rec.ID),
		zap.Int("ingredients", len(rec.Ingredients)),
	)
	go uc.publish(context.Background(), dto.EventRecipeCreated, rec.ID, ingredientIDs(rec.Ingredients))

	return rec, nil
}

func (uc *recipeUseCase) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	rec, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.NotFound("recipe %d not found", id)
	}
	rec.Ingredients, err = uc.repo.ListIngredients(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (uc *recipeUseCase) ListRecipes(ctx context.Context, filters *dto.RecipeFilters) ([]model.Recipe, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *recipeUseCase) UpdateRecipe(ctx context.Context, input *dto.UpdateRecipeInput) (*model.Recipe, error) {
	if input.Name == nil && input.Instructions == nil && !input.Yield.Set {
		return nil, apperror.InvalidRequest("no fields to update")
	}

	rec, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperror.NotFound("recipe %d not found", input.ID)
	}

	if input.Name != nil {
		if rec.Name, err = validateName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Instructions != nil {
		rec.Instructions = input.Instructions
	}
	yieldChanged := false
	if input.Yield.Set {
		if err := validateYield(input.Yield.Value); err != nil {
			return nil, err
		}
		yieldChanged = !sameYield(rec.Yield, input.Yield.Value)
		rec.Yield = input.Yield.Value
	}

	rec.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	// A recipe's yield scales its share in every parent.
	if yieldChanged {
		uc.invalidateCosts(ctx)
	}
	go uc.publish(context.Background(), dto.EventRecipeUpdated, rec.ID, nil)

	return rec, nil
}

func (uc *recipeUseCase) DeleteRecipe(ctx context.Context, id int64) error {
	err := uc.repo.WithTx(ctx, func(tx recipe.Repository) error {
		rec, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperror.NotFound("recipe %d not found", id)
		}

		parents, err := tx.ParentsOf(ctx, id)
		if err != nil {
			return err
		}
		if len(parents) > 0 {
			return apperror.Newf(apperror.CodeConstraintViolation,
				"recipe %d is used as a sub-recipe", id).WithContext("parents", parents)
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	uc.invalidateCosts(ctx)
	go uc.publish(context.Background(), dto.EventRecipeDeleted, id, nil)
	return nil
}

func (uc *recipeUseCase) invalidateCosts(ctx context.Context) {
	if err := uc.cache.InvalidateRecipeCosts(ctx); err != nil {
		uc.logger.Warn("failed to invalidate recipe costs", zap.Error(err))
	}
}

func (uc *recipeUseCase) publish(ctx context.Context, eventType string, recipeID int64, ingredients []int64) {
	event := dto.RecipeEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   dto.RecipePayload{RecipeID: recipeID, IngredientIDs: ingredients},
		Timestamp: time.Now().UTC(),
	}
	if err := uc.producer.Publish(ctx, strconv.FormatInt(recipeID, 10), event); err != nil {
		uc.logger.Error("failed to publish recipe event",
			zap.String("event_type", eventType),
			zap.Int64("recipe_id", recipeID),
			zap.Error(err),
		)
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.InvalidRequest("recipe_name is required")
	}
	if len(name) > maxNameLength {
		return "", apperror.InvalidRequest("recipe_name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

// validateYield accepts a missing yield; a present one must be positive.
func validateYield(y decimal.NullDecimal) error {
	if y.Valid && !y.Decimal.IsPositive() {
		return apperror.InvalidRequest("yield must be greater than zero")
	}
	return nil
}

func sameYield(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func ingredientIDs(ingredients []model.RecipeIngredient) []int64 {
	ids := make([]int64, len(ingredients))
	for i, ing := range ingredients {
		ids[i] = ing.ID
	}
	return ids
}
