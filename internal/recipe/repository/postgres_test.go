package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/testutil"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*PGRepository, *sqlx.DB) {
	db := testutil.NewDB(t)
	db.MustExec(`INSERT INTO units (unit_name, unit_type, conversion_factor_to_base) VALUES ('kilogram', 'mass', '1')`)
	db.MustExec(`INSERT INTO products (product_name) VALUES ('flour')`)
	db.MustExec(`INSERT INTO product_variants (product_id, package_size, unit_id) VALUES (1, '25', 1)`)
	return NewPGRepository(db, sql.LevelDefault), db
}

func createRecipe(t *testing.T, repo *PGRepository, name, yield string) *model.Recipe {
	t.Helper()
	now := time.Now().UTC()
	rec := &model.Recipe{BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now}, Name: name}
	if yield != "" {
		rec.Yield = decimal.NewNullDecimal(decimal.RequireFromString(yield))
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

func addSub(t *testing.T, repo *PGRepository, recipeID, subID int64) *model.RecipeIngredient {
	t.Helper()
	ing := &model.RecipeIngredient{RecipeID: recipeID, SubRecipeID: &subID, Quantity: decimal.NewFromInt(1), UnitID: 1}
	require.NoError(t, repo.AddIngredient(context.Background(), ing))
	return ing
}

func TestRecipeRoundTrip(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	withYield := createRecipe(t, repo, "Dough", "4")
	noYield := createRecipe(t, repo, "Sauce", "")

	got, err := repo.FindByID(ctx, withYield.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.HasValidYield())
	assert.Equal(t, "4", got.Yield.Decimal.String())

	y, err := repo.RecipeYield(ctx, noYield.ID)
	require.NoError(t, err)
	assert.False(t, y.Valid)

	_, err = repo.RecipeYield(ctx, 999)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	missing, err := repo.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	recipes, count, err := repo.FindAll(ctx, &dto.RecipeFilters{SearchQuery: "dou"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "Dough", recipes[0].Name)
}

func TestIngredientsAndEdges(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	dough := createRecipe(t, repo, "Dough", "4")
	pizza := createRecipe(t, repo, "Pizza", "1")

	productID, variantID := int64(1), int64(1)
	flour := &model.RecipeIngredient{RecipeID: dough.ID, ProductID: &productID, VariantID: &variantID, Quantity: decimal.RequireFromString("0.5"), UnitID: 1}
	require.NoError(t, repo.AddIngredient(ctx, flour))
	sub := addSub(t, repo, pizza.ID, dough.ID)

	listed, err := repo.ListIngredients(ctx, pizza.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].SubRecipeName)
	assert.Equal(t, "Dough", *listed[0].SubRecipeName)
	assert.Equal(t, "kilogram", *listed[0].UnitName)

	listed, err = repo.ListIngredients(ctx, dough.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "flour", *listed[0].ProductName)
	assert.Equal(t, "0.5", listed[0].Quantity.String())

	edges, err := repo.SubRecipeEdges(ctx, pizza.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{dough.ID}, edges)

	edges, err = repo.SubRecipeEdges(ctx, dough.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	_, err = repo.SubRecipeEdges(ctx, 404)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	parents, err := repo.ParentsOf(ctx, dough.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{pizza.ID}, parents)

	found, err := repo.FindIngredient(ctx, pizza.ID, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	wrongRecipe, err := repo.FindIngredient(ctx, dough.ID, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, wrongRecipe)

	found.Quantity = decimal.NewFromInt(3)
	require.NoError(t, repo.UpdateIngredient(ctx, found))
	rows, err := repo.RecipeIngredients(ctx, pizza.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", rows[0].Quantity.String())

	require.NoError(t, repo.DeleteIngredient(ctx, pizza.ID, sub.ID))
	parents, err = repo.ParentsOf(ctx, dough.ID)
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestReferenceChecks(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	ok, err := repo.UnitExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.UnitExists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ProductExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	owner, err := repo.VariantProductID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, int64(1), *owner)

	owner, err = repo.VariantProductID(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestWithTxRollsBack(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var created int64
	err := repo.WithTx(ctx, func(tx recipe.Repository) error {
		now := time.Now().UTC()
		rec := &model.Recipe{BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now}, Name: "Ghost"}
		if err := tx.Create(ctx, rec); err != nil {
			return err
		}
		created = rec.ID

		// Reads inside the transaction see its own writes.
		got, err := tx.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.FindByID(ctx, created)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithTxCommitsAndNests(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	var id int64
	err := repo.WithTx(ctx, func(tx recipe.Repository) error {
		return tx.WithTx(ctx, func(inner recipe.Repository) error {
			now := time.Now().UTC()
			rec := &model.Recipe{BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now}, Name: "Kept"}
			err := inner.Create(ctx, rec)
			id = rec.ID
			return err
		})
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kept", got.Name)
}

func TestDeleteRemovesIngredients(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()

	a := createRecipe(t, repo, "A", "1")
	b := createRecipe(t, repo, "B", "1")
	addSub(t, repo, a.ID, b.ID)

	require.NoError(t, repo.Delete(ctx, a.ID))

	var n int
	require.NoError(t, db.Get(&n, `SELECT count(*) FROM recipe_ingredients`))
	assert.Zero(t, n)
}
