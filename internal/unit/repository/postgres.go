package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/unit/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const unitColumns = `unit_id, unit_name, unit_type, conversion_factor_to_base, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, u *model.Unit) error {
	query := `
        INSERT INTO units (unit_name, unit_type, conversion_factor_to_base, created_at, updated_at)
        VALUES (:unit_name, :unit_type, :conversion_factor_to_base, :created_at, :updated_at)
        RETURNING unit_id
    `
	stmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.GetContext(ctx, &u.ID, u)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Unit, error) {
	var u model.Unit
	query := r.DB.Rebind(`SELECT ` + unitColumns + ` FROM units WHERE unit_id = ?`)
	if err := r.DB.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGRepository) FindByName(ctx context.Context, name string) (*model.Unit, error) {
	var u model.Unit
	query := r.DB.Rebind(`SELECT ` + unitColumns + ` FROM units WHERE unit_name = ?`)
	if err := r.DB.GetContext(ctx, &u, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.UnitFilters) ([]model.Unit, int, error) {
	where := ""
	args := []any{}
	if f.UnitType != "" {
		where = " WHERE unit_type = ?"
		args = append(args, f.UnitType)
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM units"+where), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + unitColumns + " FROM units" + where + " ORDER BY unit_name ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	units := []model.Unit{}
	if err := r.DB.SelectContext(ctx, &units, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return units, count, nil
}

func (r *PGRepository) Update(ctx context.Context, u *model.Unit) error {
	query := `
        UPDATE units
        SET unit_name = :unit_name,
            unit_type = :unit_type,
            conversion_factor_to_base = :conversion_factor_to_base,
            updated_at = :updated_at
        WHERE unit_id = :unit_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, u)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM units WHERE unit_id = ?"), id)
	return err
}

func (r *PGRepository) IsInUse(ctx context.Context, id int64) (bool, error) {
	query := r.DB.Rebind(`
        SELECT
            (SELECT count(*) FROM recipe_ingredients WHERE unit_id = ?) +
            (SELECT count(*) FROM product_variants WHERE unit_id = ?) +
            (SELECT count(*) FROM products WHERE default_unit_id = ?)
    `)
	var refs int
	if err := r.DB.GetContext(ctx, &refs, query, id, id, id); err != nil {
		return false, err
	}
	return refs > 0, nil
}

func (r *PGRepository) ConversionFactor(ctx context.Context, id int64) (decimal.Decimal, error) {
	var factor decimal.Decimal
	query := r.DB.Rebind(`SELECT conversion_factor_to_base FROM units WHERE unit_id = ?`)
	if err := r.DB.GetContext(ctx, &factor, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, apperror.NotFound("unit %d not found", id)
		}
		return decimal.Zero, fmt.Errorf("get unit %d factor: %w", id, err)
	}
	return factor, nil
}
