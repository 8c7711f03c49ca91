package costing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestCostIsSumOfIndependentIngredients(t *testing.T) {
	g := newMemGraph().unit(1, "1.0").unit(2, "2.0").recipe(1, "10").
		product(1, 10, id(100), "2", 1).
		product(1, 11, id(101), "3", 2)
	g.variantPrices[100] = d("5.00")
	g.variantPrices[101] = d("2.00")
	r := NewResolver(g, Options{})

	total, err := r.CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assertDecimal(t, "22.00", total)

	perUnit, err := r.CalculateCostPerUnit(context.Background(), 1)
	require.NoError(t, err)
	assertDecimal(t, "2.20", perUnit)
}

func TestSubRecipeContributesScaledShare(t *testing.T) {
	// sub-recipe 2: total 40.00, yield 4. Recipe 1 uses 2 base units of it.
	g := newMemGraph().unit(1, "1").
		recipe(1, "1").recipe(2, "4").
		product(2, 10, id(100), "8", 1).
		sub(1, 2, "2", 1)
	g.variantPrices[100] = d("5.00")
	r := NewResolver(g, Options{})

	sub, err := r.CalculateRecipeCost(context.Background(), 2)
	require.NoError(t, err)
	assertDecimal(t, "40.00", sub)

	total, err := r.CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assertDecimal(t, "20.00", total)
}

func TestUnitConversionAppliesToSubRecipeQuantity(t *testing.T) {
	// 500 g of a sub-recipe whose yield is 2 kg (base unit: kg)
	g := newMemGraph().unit(1, "1").unit(2, "0.001").
		recipe(1, "1").recipe(2, "2").
		product(2, 10, id(100), "2", 1).
		sub(1, 2, "500", 2)
	g.variantPrices[100] = d("3")
	r := NewResolver(g, Options{})

	total, err := r.CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	// sub total 6, share 0.5/2 = 0.25
	assertDecimal(t, "1.5", total)
}

func TestZeroIngredientRecipe(t *testing.T) {
	g := newMemGraph().recipe(1, "12")
	r := NewResolver(g, Options{})

	total, err := r.CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	perUnit, err := r.CalculateCostPerUnit(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, perUnit.IsZero())
}

func TestMissingPriceFailsWholeChain(t *testing.T) {
	g := newMemGraph().unit(1, "1").
		recipe(1, "1").recipe(2, "1").recipe(3, "1").
		product(3, 10, id(100), "1", 1).
		sub(2, 3, "1", 1).
		sub(1, 2, "1", 1)
	r := NewResolver(g, Options{})

	for _, recipeID := range []int64{1, 2, 3} {
		_, err := r.CalculateRecipeCost(context.Background(), recipeID)
		assert.True(t, apperror.Is(err, apperror.CodeNotFound), "recipe %d: %v", recipeID, err)
	}
}

func TestPriceFallsBackToProductWithoutVariant(t *testing.T) {
	g := newMemGraph().unit(1, "1").recipe(1, "1").product(1, 10, nil, "3", 1)
	g.productPrices[10] = d("1.25")
	g.variantPrices[10] = d("99")

	total, err := NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assertDecimal(t, "3.75", total)
}

func TestInvalidYield(t *testing.T) {
	for _, yield := range []string{"", "0", "-1"} {
		t.Run("yield="+yield, func(t *testing.T) {
			g := newMemGraph().unit(1, "1").recipe(1, yield).product(1, 10, id(100), "1", 1)
			g.variantPrices[100] = d("4")
			r := NewResolver(g, Options{})

			total, err := r.CalculateRecipeCost(context.Background(), 1)
			require.NoError(t, err)
			assertDecimal(t, "4", total)

			_, err = r.CalculateCostPerUnit(context.Background(), 1)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidYield))

			b, err := r.Breakdown(context.Background(), 1)
			require.NoError(t, err)
			assert.Nil(t, b.CostPerUnit)
		})
	}
}

func TestSubRecipeWithoutYieldFails(t *testing.T) {
	g := newMemGraph().unit(1, "1").recipe(1, "1").recipe(2, "").sub(1, 2, "1", 1)

	_, err := NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidYield))
}

func TestMissingUnitAndRecipe(t *testing.T) {
	g := newMemGraph().recipe(1, "1").product(1, 10, nil, "1", 9)
	r := NewResolver(g, Options{})

	_, err := r.CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
	assert.Contains(t, err.Error(), "unit 9")

	_, err = r.CalculateRecipeCost(context.Background(), 404)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestAmbiguousIngredientIsConstraintViolation(t *testing.T) {
	g := newMemGraph().unit(1, "1").recipe(1, "1").recipe(2, "1")
	g.ingredients[1] = []model.RecipeIngredient{
		{ID: 1, RecipeID: 1, ProductID: id(10), SubRecipeID: id(2), Quantity: d("1"), UnitID: 1},
	}

	_, err := NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeConstraintViolation))

	g.ingredients[1] = []model.RecipeIngredient{{ID: 1, RecipeID: 1, Quantity: d("1"), UnitID: 1}}
	_, err = NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeConstraintViolation))
}

func TestCorruptedCycleIsDetected(t *testing.T) {
	g := newMemGraph().unit(1, "1").recipe(1, "1").recipe(2, "1").
		sub(1, 2, "1", 1).sub(2, 1, "1", 1)

	_, err := NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeCycleRejected))
}

func TestDepthCeiling(t *testing.T) {
	g := newMemGraph().unit(1, "1")
	for i := int64(1); i <= 5; i++ {
		g.recipe(i, "1")
		if i > 1 {
			g.sub(i-1, i, "1", 1)
		}
	}

	_, err := NewResolver(g, Options{MaxDepth: 3}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeDepthExceeded))

	total, err := NewResolver(g, Options{MaxDepth: 5}).CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestConcurrentResolutionMatchesSequential(t *testing.T) {
	g, nodes := buildTree(4, 3)
	g.productPrices[100] = d("0.37")

	seq := NewResolver(g, Options{})
	par := NewResolver(g, Options{Concurrency: 4})
	for _, n := range nodes {
		a, err := seq.CalculateRecipeCost(context.Background(), n)
		require.NoError(t, err)
		b, err := par.CalculateRecipeCost(context.Background(), n)
		require.NoError(t, err)
		assert.True(t, a.Equal(b), "recipe %d: %s != %s", n, a, b)
	}
}

func TestConcurrentResolutionPropagatesFailure(t *testing.T) {
	g, _ := buildTree(3, 3)
	// no prices at all
	_, err := NewResolver(g, Options{Concurrency: 3}).CalculateRecipeCost(context.Background(), 1)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

// gaugedSource records the peak number of lookups in flight at once.
type gaugedSource struct {
	*memGraph
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (s *gaugedSource) enter() func() {
	n := s.inFlight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return func() { s.inFlight.Add(-1) }
}

func (s *gaugedSource) RecipeYield(ctx context.Context, id int64) (decimal.NullDecimal, error) {
	defer s.enter()()
	return s.memGraph.RecipeYield(ctx, id)
}

func (s *gaugedSource) RecipeIngredients(ctx context.Context, id int64) ([]model.RecipeIngredient, error) {
	defer s.enter()()
	return s.memGraph.RecipeIngredients(ctx, id)
}

func (s *gaugedSource) UnitConversionFactor(ctx context.Context, id int64) (decimal.Decimal, error) {
	defer s.enter()()
	return s.memGraph.UnitConversionFactor(ctx, id)
}

func (s *gaugedSource) LatestPrice(ctx context.Context, ref model.ProductRef) (decimal.Decimal, error) {
	defer s.enter()()
	return s.memGraph.LatestPrice(ctx, ref)
}

func TestConcurrencyBoundsWholeResolution(t *testing.T) {
	g, _ := buildTree(3, 3)
	g.productPrices[100] = d("0.37")
	src := &gaugedSource{memGraph: g}

	want, err := NewResolver(g, Options{}).CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)

	got, err := NewResolver(src, Options{Concurrency: 2}).CalculateRecipeCost(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "%s != %s", want, got)
	assert.LessOrEqual(t, src.peak.Load(), int64(2))
	assert.Positive(t, src.peak.Load())
}

func TestBreakdownLines(t *testing.T) {
	g := newMemGraph().unit(1, "1").unit(2, "2").
		recipe(1, "2").recipe(2, "4").
		product(2, 10, id(100), "8", 1).
		product(1, 11, nil, "1", 2).
		sub(1, 2, "2", 1)
	g.variantPrices[100] = d("5")
	g.productPrices[11] = d("3")

	b, err := NewResolver(g, Options{}).Breakdown(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, b.Lines, 2)

	assertDecimal(t, "2", b.Lines[0].QuantityInBase)
	assertDecimal(t, "6", b.Lines[0].Cost)
	assert.Equal(t, int64(11), *b.Lines[0].ProductID)

	assertDecimal(t, "10", b.Lines[1].UnitCost)
	assertDecimal(t, "20", b.Lines[1].Cost)
	assert.Equal(t, int64(2), *b.Lines[1].SubRecipeID)

	assertDecimal(t, "26", b.TotalCost)
	require.NotNil(t, b.CostPerUnit)
	assertDecimal(t, "13", *b.CostPerUnit)
}
