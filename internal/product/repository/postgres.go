package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const (
	productColumns = `product_id, product_name, category, default_unit_id, default_variant_id, created_at, updated_at`
	variantColumns = `variant_id, product_id, brand_id, supplier_id, package_size, unit_id, upc, created_at, updated_at`
	priceColumns   = `price_id, variant_id, price, price_date`
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (product_name, category, default_unit_id, default_variant_id, created_at, updated_at)
        VALUES (:product_name, :category, :default_unit_id, :default_variant_id, :created_at, :updated_at)
        RETURNING product_id
    `
	stmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.GetContext(ctx, &p.ID, p)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := r.DB.Rebind(`SELECT ` + productColumns + ` FROM products WHERE product_id = ?`)
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Category != "" {
		conditions = append(conditions, "category = :category")
		args["category"] = f.Category
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "lower(product_name) LIKE :search")
		args["search"] = "%" + strings.ToLower(f.SearchQuery) + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countStmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM products"+whereClause)
	if err != nil {
		return nil, 0, err
	}
	defer countStmt.Close()
	if err := countStmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + productColumns + " FROM products" + whereClause + " ORDER BY product_name ASC, product_id ASC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	products := []model.Product{}
	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products
        SET product_name = :product_name,
            category = :category,
            default_unit_id = :default_unit_id,
            default_variant_id = :default_variant_id,
            updated_at = :updated_at
        WHERE product_id = :product_id
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM products WHERE product_id = ?"), id)
	return err
}

func (r *PGRepository) IsInUse(ctx context.Context, id int64) (bool, error) {
	var refs int
	query := r.DB.Rebind(`SELECT count(*) FROM recipe_ingredients WHERE product_id = ?`)
	if err := r.DB.GetContext(ctx, &refs, query, id); err != nil {
		return false, err
	}
	return refs > 0, nil
}

func (r *PGRepository) CreateVariant(ctx context.Context, v *model.ProductVariant) error {
	query := `
        INSERT INTO product_variants (product_id, brand_id, supplier_id, package_size, unit_id, upc, created_at, updated_at)
        VALUES (:product_id, :brand_id, :supplier_id, :package_size, :unit_id, :upc, :created_at, :updated_at)
        RETURNING variant_id
    `
	stmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.GetContext(ctx, &v.ID, v)
}

func (r *PGRepository) FindVariantByID(ctx context.Context, id int64) (*model.ProductVariant, error) {
	var v model.ProductVariant
	query := r.DB.Rebind(`SELECT ` + variantColumns + ` FROM product_variants WHERE variant_id = ?`)
	if err := r.DB.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PGRepository) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	variants := []model.ProductVariant{}
	query := r.DB.Rebind(`SELECT ` + variantColumns + ` FROM product_variants WHERE product_id = ? ORDER BY variant_id`)
	if err := r.DB.SelectContext(ctx, &variants, query, productID); err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *PGRepository) DeleteVariant(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM product_variants WHERE variant_id = ?"), id)
	return err
}

func (r *PGRepository) IsVariantInUse(ctx context.Context, id int64) (bool, error) {
	query := r.DB.Rebind(`
        SELECT
            (SELECT count(*) FROM recipe_ingredients WHERE variant_id = ?) +
            (SELECT count(*) FROM products WHERE default_variant_id = ?)
    `)
	var refs int
	if err := r.DB.GetContext(ctx, &refs, query, id, id); err != nil {
		return false, err
	}
	return refs > 0, nil
}

func (r *PGRepository) RecordPrice(ctx context.Context, p *model.ProductPrice) error {
	query := `
        INSERT INTO product_prices (variant_id, price, price_date)
        VALUES (:variant_id, :price, :price_date)
        RETURNING price_id
    `
	stmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.GetContext(ctx, &p.ID, p)
}

func (r *PGRepository) LatestVariantPrice(ctx context.Context, variantID int64) (*model.ProductPrice, error) {
	var p model.ProductPrice
	query := r.DB.Rebind(`
        SELECT ` + priceColumns + ` FROM product_prices
        WHERE variant_id = ?
        ORDER BY price_date DESC, price_id DESC
        LIMIT 1
    `)
	if err := r.DB.GetContext(ctx, &p, query, variantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ListPrices(ctx context.Context, variantID int64, limit int) ([]model.ProductPrice, error) {
	prices := []model.ProductPrice{}
	query := `SELECT ` + priceColumns + ` FROM product_prices WHERE variant_id = ? ORDER BY price_date DESC, price_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if err := r.DB.SelectContext(ctx, &prices, r.DB.Rebind(query), variantID); err != nil {
		return nil, err
	}
	return prices, nil
}

func (r *PGRepository) LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error) {
	var (
		price decimal.Decimal
		query string
		arg   int64
	)
	if ref.VariantID != nil {
		query = `
            SELECT price FROM product_prices
            WHERE variant_id = ?
            ORDER BY price_date DESC, price_id DESC
            LIMIT 1
        `
		arg = *ref.VariantID
	} else {
		query = `
            SELECT pp.price FROM product_prices pp
            JOIN product_variants pv ON pv.variant_id = pp.variant_id
            WHERE pv.product_id = ?
            ORDER BY pp.price_date DESC, pp.price_id DESC
            LIMIT 1
        `
		arg = ref.ProductID
	}

	if err := r.DB.GetContext(ctx, &price, r.DB.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if ref.VariantID != nil {
				return decimal.Zero, apperror.NotFound("no price for variant %d", *ref.VariantID)
			}
			return decimal.Zero, apperror.NotFound("no price for product %d", ref.ProductID)
		}
		return decimal.Zero, fmt.Errorf("latest price: %w", err)
	}
	return price, nil
}
