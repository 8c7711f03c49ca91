package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/search"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"go.uber.org/zap"
)

const (
	indexName    = "products"
	listCacheTTL = 5 * time.Minute
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"product_id": { "type": "long" },
			"product_name": { "type": "text" },
			"category": { "type": "keyword" },
			"default_unit_id": { "type": "long" },
			"created_at": { "type": "date" }
		}
	}
}`

type productUseCase struct {
	repo   product.Repository
	cache  *cache.RedisClient
	es     *search.Client
	logger logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, cache *cache.RedisClient, es *search.Client, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		logger: log,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.InvalidRequest("product_name is required")
	}

	now := time.Now().UTC()
	p := &model.Product{
		BaseModel:     model.BaseModel{CreatedAt: now, UpdatedAt: now},
		Name:          name,
		Category:      input.Category,
		DefaultUnitID: input.DefaultUnitID,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background())

	// Sync to Elastic
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	// Lazily create the index; an existing one is fine.
	if err := uc.es.CreateIndex(ctx, indexName, indexMapping); err != nil {
		uc.logger.Warn("failed to ensure product index", zap.String("index", indexName), zap.Error(err))
	}

	if err := uc.es.Index(ctx, indexName, strconv.FormatInt(p.ID, 10), p); err != nil {
		uc.logger.Error("failed to index product", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %d not found", id)
	}
	p.Variants, err = uc.repo.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	// 1. Check Cache
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil {
		var hit cachedList
		if ok, err := uc.cache.GetJSON(ctx, cacheKey, &hit); err == nil && ok {
			return hit.Products, hit.Count, nil
		} else if err != nil {
			uc.logger.Warn("product list cache read failed", zap.Error(err))
		}
	}

	// 2. Search via Elastic (if query present)
	if filters.SearchQuery != "" && uc.es != nil {
		products, total, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return products, total, nil
		}
		// If ES fails, fall through to DB
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	// 3. DB Query (Fallback or Standard List)
	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	// 4. Set Cache
	if cacheKey != "" {
		if err := uc.cache.SetJSON(ctx, cacheKey, cachedList{Products: products, Count: count}, listCacheTTL); err != nil {
			uc.logger.Warn("product list cache write failed", zap.Error(err))
		}
	}

	return products, count, nil
}

func (uc *productUseCase) searchElastic(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
				"fields": []string{"product_name^3", "category"},
			},
		},
	}
	if filters.Category != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"category": filters.Category},
		})
	}
	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
	}
	if filters.PageSize > 0 {
		q["from"] = (filters.Page - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err == nil {
			products = append(products, p)
		}
	}
	return products, res.Hits.Total.Value, nil
}

func (uc *productUseCase) generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%x", md5.Sum(data)), nil
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context) {
	if err := uc.cache.DeletePattern(ctx, "products:list:*"); err != nil {
		uc.logger.Warn("failed to invalidate product list cache", zap.Error(err))
	}
}

func (uc *productUseCase) invalidateCosts(ctx context.Context) {
	if err := uc.cache.InvalidateRecipeCosts(ctx); err != nil {
		uc.logger.Warn("failed to invalidate recipe costs", zap.Error(err))
	}
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	if input.Name == nil && input.Category == nil && input.DefaultUnitID == nil && input.DefaultVariantID == nil {
		return nil, apperror.InvalidRequest("no fields to update")
	}

	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %d not found", input.ID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.InvalidRequest("product_name must not be empty")
		}
		p.Name = name
	}
	if input.Category != nil {
		p.Category = input.Category
	}
	if input.DefaultUnitID != nil {
		p.DefaultUnitID = input.DefaultUnitID
	}
	if input.DefaultVariantID != nil {
		v, err := uc.repo.FindVariantByID(ctx, *input.DefaultVariantID)
		if err != nil {
			return nil, err
		}
		if v == nil || v.ProductID != p.ID {
			return nil, apperror.Newf(apperror.CodeConstraintViolation,
				"variant %d does not belong to product %d", *input.DefaultVariantID, p.ID)
		}
		p.DefaultVariantID = input.DefaultVariantID
	}

	p.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background())
	// Sync ES
	go uc.syncToElastic(context.Background(), p)

	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return apperror.NotFound("product %d not found", id)
	}

	inUse, err := uc.repo.IsInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperror.Newf(apperror.CodeConstraintViolation, "product %d is used by a recipe", id)
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Invalidate Cache
	go uc.invalidateProductCache(context.Background())
	// Remove from ES
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), indexName, strconv.FormatInt(id, 10)); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.Error(err))
			}
		}()
	}

	return nil
}

func (uc *productUseCase) AddVariant(ctx context.Context, input *dto.CreateVariantInput) (*model.ProductVariant, error) {
	p, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %d not found", input.ProductID)
	}
	if !input.PackageSize.IsPositive() {
		return nil, apperror.InvalidRequest("package_size must be greater than zero")
	}
	if input.UnitID <= 0 {
		return nil, apperror.InvalidRequest("unit_id is required")
	}

	now := time.Now().UTC()
	v := &model.ProductVariant{
		BaseModel:   model.BaseModel{CreatedAt: now, UpdatedAt: now},
		ProductID:   input.ProductID,
		BrandID:     input.BrandID,
		SupplierID:  input.SupplierID,
		PackageSize: input.PackageSize,
		UnitID:      input.UnitID,
		UPC:         input.UPC,
	}
	if err := uc.repo.CreateVariant(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (uc *productUseCase) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	p, err := uc.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("product %d not found", productID)
	}
	return uc.repo.ListVariants(ctx, productID)
}

func (uc *productUseCase) DeleteVariant(ctx context.Context, productID, variantID int64) error {
	v, err := uc.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return err
	}
	if v == nil || v.ProductID != productID {
		return apperror.NotFound("variant %d not found on product %d", variantID, productID)
	}

	inUse, err := uc.repo.IsVariantInUse(ctx, variantID)
	if err != nil {
		return err
	}
	if inUse {
		return apperror.Newf(apperror.CodeConstraintViolation, "variant %d is still referenced", variantID)
	}

	if err := uc.repo.DeleteVariant(ctx, variantID); err != nil {
		return err
	}
	uc.invalidateCosts(ctx)
	return nil
}

func (uc *productUseCase) RecordPrice(ctx context.Context, input *dto.RecordPriceInput) (*model.ProductPrice, error) {
	if !input.Price.IsPositive() {
		return nil, apperror.InvalidRequest("price must be greater than zero")
	}
	v, err := uc.repo.FindVariantByID(ctx, input.VariantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperror.NotFound("variant %d not found", input.VariantID)
	}

	date := time.Now().UTC()
	if input.PriceDate != nil {
		date = input.PriceDate.UTC()
	}
	p := &model.ProductPrice{
		VariantID: input.VariantID,
		Price:     input.Price,
		PriceDate: date,
	}
	if err := uc.repo.RecordPrice(ctx, p); err != nil {
		return nil, err
	}

	// A new price moves the cost of every recipe that reaches this variant.
	uc.invalidateCosts(ctx)

	uc.logger.Debug("price recorded",
		zap.Int64("variant_id", p.VariantID),
		zap.String("price", p.Price.String()),
	)
	return p, nil
}

func (uc *productUseCase) GetLatestPrice(ctx context.Context, variantID int64) (*model.ProductPrice, error) {
	p, err := uc.repo.LatestVariantPrice(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NotFound("no price for variant %d", variantID)
	}
	return p, nil
}

func (uc *productUseCase) ListPrices(ctx context.Context, variantID int64, limit int) ([]model.ProductPrice, error) {
	v, err := uc.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperror.NotFound("variant %d not found", variantID)
	}
	return uc.repo.ListPrices(ctx, variantID, limit)
}
