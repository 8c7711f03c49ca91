package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/postgres"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	recipeColumns     = `recipe_id, recipe_name, instructions, yield, created_at, updated_at`
	ingredientColumns = `recipe_ingredient_id, recipe_id, product_id, sub_recipe_id, variant_id, quantity, unit_id`

	// graphLockKey is the advisory lock taken by every transaction that
	// rewrites recipe -> sub-recipe edges.
	graphLockKey int64 = 7_310_028_341

	maxTxAttempts = 3
)

// PGRepository works on the pool or, inside WithTx, on a single transaction.
type PGRepository struct {
	DB        *sqlx.DB
	q         sqlx.ExtContext
	isolation sql.IsolationLevel
}

func NewPGRepository(db *sqlx.DB, isolation sql.IsolationLevel) *PGRepository {
	return &PGRepository{DB: db, q: db, isolation: isolation}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(tx recipe.Repository) error) error {
	if _, inTx := r.q.(*sqlx.Tx); inTx {
		return fn(r)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if err == nil || !postgres.IsSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxAttempts, err)
}

func (r *PGRepository) runTx(ctx context.Context, fn func(tx recipe.Repository) error) error {
	tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: r.isolation})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if postgres.IsPostgres(r.DB) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, graphLockKey); err != nil {
			return fmt.Errorf("lock recipe graph: %w", err)
		}
	}

	if err := fn(&PGRepository{DB: r.DB, q: tx, isolation: r.isolation}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) insertReturning(ctx context.Context, dest *int64, query string, arg interface{}) error {
	q, args, err := r.q.BindNamed(query, arg)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, r.q, dest, q, args...)
}

func (r *PGRepository) Create(ctx context.Context, rec *model.Recipe) error {
	query := `
        INSERT INTO recipes (recipe_name, instructions, yield, created_at, updated_at)
        VALUES (:recipe_name, :instructions, :yield, :created_at, :updated_at)
        RETURNING recipe_id
    `
	return r.insertReturning(ctx, &rec.ID, query, rec)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Recipe, error) {
	var rec model.Recipe
	query := r.q.Rebind(`SELECT ` + recipeColumns + ` FROM recipes WHERE recipe_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RecipeFilters) ([]model.Recipe, int, error) {
	where := ""
	args := []interface{}{}
	if f.SearchQuery != "" {
		where = " WHERE lower(recipe_name) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.SearchQuery)+"%")
	}

	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, r.q.Rebind("SELECT count(*) FROM recipes"+where), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + recipeColumns + " FROM recipes" + where + " ORDER BY recipe_name ASC, recipe_id ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	recipes := []model.Recipe{}
	if err := sqlx.SelectContext(ctx, r.q, &recipes, r.q.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return recipes, count, nil
}

func (r *PGRepository) Update(ctx context.Context, rec *model.Recipe) error {
	query := `
        UPDATE recipes
        SET recipe_name = :recipe_name,
            instructions = :instructions,
            yield = :yield,
            updated_at = :updated_at
        WHERE recipe_id = :recipe_id
    `
	_, err := sqlx.NamedExecContext(ctx, r.q, query, rec)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM recipe_ingredients WHERE recipe_id = ?`), id); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM recipes WHERE recipe_id = ?`), id)
	if postgres.IsForeignKeyViolation(err) {
		return apperror.Wrap(apperror.CodeConstraintViolation,
			fmt.Sprintf("recipe %d is used as a sub-recipe", id), err)
	}
	return err
}

func (r *PGRepository) ParentsOf(ctx context.Context, id int64) ([]int64, error) {
	parents := []int64{}
	query := r.q.Rebind(`SELECT DISTINCT recipe_id FROM recipe_ingredients WHERE sub_recipe_id = ? ORDER BY recipe_id`)
	if err := sqlx.SelectContext(ctx, r.q, &parents, query, id); err != nil {
		return nil, err
	}
	return parents, nil
}

func (r *PGRepository) ListIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error) {
	ingredients := []model.RecipeIngredient{}
	query := r.q.Rebind(`
        SELECT
            ri.recipe_ingredient_id, ri.recipe_id, ri.product_id, ri.sub_recipe_id,
            ri.variant_id, ri.quantity, ri.unit_id,
            p.product_name,
            sr.recipe_name AS sub_recipe_name,
            u.unit_name
        FROM recipe_ingredients ri
        LEFT JOIN products p ON ri.product_id = p.product_id
        LEFT JOIN recipes sr ON ri.sub_recipe_id = sr.recipe_id
        LEFT JOIN units u ON ri.unit_id = u.unit_id
        WHERE ri.recipe_id = ?
        ORDER BY ri.recipe_ingredient_id
    `)
	if err := sqlx.SelectContext(ctx, r.q, &ingredients, query, recipeID); err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *PGRepository) FindIngredient(ctx context.Context, recipeID, ingredientID int64) (*model.RecipeIngredient, error) {
	var ing model.RecipeIngredient
	query := r.q.Rebind(`SELECT ` + ingredientColumns + ` FROM recipe_ingredients WHERE recipe_ingredient_id = ? AND recipe_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &ing, query, ingredientID, recipeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ing, nil
}

func (r *PGRepository) AddIngredient(ctx context.Context, ing *model.RecipeIngredient) error {
	query := `
        INSERT INTO recipe_ingredients (recipe_id, product_id, sub_recipe_id, variant_id, quantity, unit_id)
        VALUES (:recipe_id, :product_id, :sub_recipe_id, :variant_id, :quantity, :unit_id)
        RETURNING recipe_ingredient_id
    `
	return r.insertReturning(ctx, &ing.ID, query, ing)
}

func (r *PGRepository) UpdateIngredient(ctx context.Context, ing *model.RecipeIngredient) error {
	query := `
        UPDATE recipe_ingredients
        SET product_id = :product_id,
            sub_recipe_id = :sub_recipe_id,
            variant_id = :variant_id,
            quantity = :quantity,
            unit_id = :unit_id
        WHERE recipe_ingredient_id = :recipe_ingredient_id AND recipe_id = :recipe_id
    `
	_, err := sqlx.NamedExecContext(ctx, r.q, query, ing)
	return err
}

func (r *PGRepository) DeleteIngredient(ctx context.Context, recipeID, ingredientID int64) error {
	query := r.q.Rebind(`DELETE FROM recipe_ingredients WHERE recipe_ingredient_id = ? AND recipe_id = ?`)
	_, err := r.q.ExecContext(ctx, query, ingredientID, recipeID)
	return err
}

func (r *PGRepository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, r.q.Rebind(query), id); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PGRepository) UnitExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT count(*) FROM units WHERE unit_id = ?`, id)
}

func (r *PGRepository) ProductExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT count(*) FROM products WHERE product_id = ?`, id)
}

func (r *PGRepository) VariantProductID(ctx context.Context, variantID int64) (*int64, error) {
	var productID int64
	query := r.q.Rebind(`SELECT product_id FROM product_variants WHERE variant_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &productID, query, variantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &productID, nil
}

func (r *PGRepository) RecipeYield(ctx context.Context, recipeID int64) (decimal.NullDecimal, error) {
	var y decimal.NullDecimal
	query := r.q.Rebind(`SELECT yield FROM recipes WHERE recipe_id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &y, query, recipeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return y, apperror.NotFound("recipe %d not found", recipeID)
		}
		return y, fmt.Errorf("get recipe %d yield: %w", recipeID, err)
	}
	return y, nil
}

func (r *PGRepository) RecipeIngredients(ctx context.Context, recipeID int64) ([]model.RecipeIngredient, error) {
	ingredients := []model.RecipeIngredient{}
	query := r.q.Rebind(`SELECT ` + ingredientColumns + ` FROM recipe_ingredients WHERE recipe_id = ? ORDER BY recipe_ingredient_id`)
	if err := sqlx.SelectContext(ctx, r.q, &ingredients, query, recipeID); err != nil {
		return nil, fmt.Errorf("list recipe %d ingredients: %w", recipeID, err)
	}
	return ingredients, nil
}

// SubRecipeEdges reads the recipe row and its sub-recipe edges in one query.
func (r *PGRepository) SubRecipeEdges(ctx context.Context, recipeID int64) ([]int64, error) {
	rows := []sql.NullInt64{}
	query := r.q.Rebind(`
        SELECT ri.sub_recipe_id
        FROM recipes rc
        LEFT JOIN recipe_ingredients ri
            ON ri.recipe_id = rc.recipe_id AND ri.sub_recipe_id IS NOT NULL
        WHERE rc.recipe_id = ?
        ORDER BY ri.recipe_ingredient_id
    `)
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, recipeID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperror.NotFound("recipe %d not found", recipeID)
	}

	edges := make([]int64, 0, len(rows))
	for _, row := range rows {
		if row.Valid {
			edges = append(edges, row.Int64)
		}
	}
	return edges, nil
}
