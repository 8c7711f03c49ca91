package usecase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/search"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	"github.com/fekuna/omnipos-catalog-service/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newUseCase(t *testing.T) product.UseCase {
	return NewProductUseCase(repository.NewPGRepository(testutil.NewDB(t)), nil, nil, logger.NewNop())
}

func TestCreateAndGetProduct(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	_, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "  "})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidRequest))

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: " Flour "})
	require.NoError(t, err)
	assert.Equal(t, "Flour", p.Name)

	_, err = uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, PackageSize: decimal.NewFromInt(25), UnitID: 1})
	require.NoError(t, err)

	got, err := uc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Variants, 1)

	_, err = uc.GetProduct(ctx, 404)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestUpdateProductDefaultVariantMustBelong(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	a, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "A"})
	require.NoError(t, err)
	b, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "B"})
	require.NoError(t, err)
	vb, err := uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: b.ID, PackageSize: decimal.NewFromInt(1), UnitID: 1})
	require.NoError(t, err)

	_, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: a.ID, DefaultVariantID: &vb.ID})
	assert.True(t, apperror.Is(err, apperror.CodeConstraintViolation))

	updated, err := uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: b.ID, DefaultVariantID: &vb.ID})
	require.NoError(t, err)
	assert.Equal(t, vb.ID, *updated.DefaultVariantID)

	_, err = uc.UpdateProduct(ctx, &dto.UpdateProductInput{ID: b.ID})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidRequest))
}

func TestAddVariantValidation(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Oil"})
	require.NoError(t, err)

	_, err = uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, PackageSize: decimal.Zero, UnitID: 1})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidRequest))

	_, err = uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: 99, PackageSize: decimal.NewFromInt(1), UnitID: 1})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestRecordPrice(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Cocoa"})
	require.NoError(t, err)
	v, err := uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, PackageSize: decimal.NewFromInt(1), UnitID: 1})
	require.NoError(t, err)

	_, err = uc.GetLatestPrice(ctx, v.ID)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	_, err = uc.RecordPrice(ctx, &dto.RecordPriceInput{VariantID: v.ID, Price: decimal.NewFromInt(-1)})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidRequest))

	_, err = uc.RecordPrice(ctx, &dto.RecordPriceInput{VariantID: 999, Price: decimal.NewFromInt(1)})
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = uc.RecordPrice(ctx, &dto.RecordPriceInput{VariantID: v.ID, Price: decimal.RequireFromString("7.10"), PriceDate: &old})
	require.NoError(t, err)
	_, err = uc.RecordPrice(ctx, &dto.RecordPriceInput{VariantID: v.ID, Price: decimal.RequireFromString("8.25")})
	require.NoError(t, err)

	latest, err := uc.GetLatestPrice(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "8.25", latest.Price.String())

	prices, err := uc.ListPrices(ctx, v.ID, 0)
	require.NoError(t, err)
	assert.Len(t, prices, 2)
}

func TestDeleteVariantAndProduct(t *testing.T) {
	uc := newUseCase(t)
	ctx := context.Background()

	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{Name: "Yeast"})
	require.NoError(t, err)
	v, err := uc.AddVariant(ctx, &dto.CreateVariantInput{ProductID: p.ID, PackageSize: decimal.NewFromInt(1), UnitID: 1})
	require.NoError(t, err)

	assert.True(t, apperror.Is(uc.DeleteVariant(ctx, p.ID+1, v.ID), apperror.CodeNotFound))
	require.NoError(t, uc.DeleteVariant(ctx, p.ID, v.ID))

	require.NoError(t, uc.DeleteProduct(ctx, p.ID))
	assert.True(t, apperror.Is(uc.DeleteProduct(ctx, p.ID), apperror.CodeNotFound))
}

func TestGenerateCacheKeyIsStable(t *testing.T) {
	uc := &productUseCase{}
	a, err := uc.generateCacheKey(&dto.ProductFilters{SearchQuery: "flour", Page: 1, PageSize: 10})
	require.NoError(t, err)
	b, err := uc.generateCacheKey(&dto.ProductFilters{SearchQuery: "flour", Page: 1, PageSize: 10})
	require.NoError(t, err)
	c, err := uc.generateCacheKey(&dto.ProductFilters{SearchQuery: "flour", Page: 2, PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "products:list:")
}

func TestIndexCreationFailureIsLogged(t *testing.T) {
	var indexed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			io.WriteString(w, `{"version":{"number":"8.19.0"}}`)
		case r.Method == http.MethodPut && !strings.Contains(r.URL.Path, "/_doc/"):
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":{"type":"security_exception"}}`)
		default:
			indexed = true
			io.WriteString(w, `{"result":"created"}`)
		}
	}))
	defer srv.Close()

	es, err := search.NewClient(&search.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	uc := &productUseCase{es: es, logger: logger.FromZap(zap.New(core))}
	uc.syncToElastic(context.Background(), &model.Product{ID: 7, Name: "Flour"})

	warns := logs.FilterMessage("failed to ensure product index").All()
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].ContextMap()["error"], "403")
	assert.True(t, indexed)
}
