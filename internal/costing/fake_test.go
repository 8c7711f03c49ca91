package costing

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

// memGraph is an in-memory Source and EdgeReader.
type memGraph struct {
	mu            sync.Mutex
	yields        map[int64]decimal.NullDecimal
	ingredients   map[int64][]model.RecipeIngredient
	units         map[int64]decimal.Decimal
	variantPrices map[int64]decimal.Decimal
	productPrices map[int64]decimal.Decimal
	edgeReads     int
	nextID        int64
}

func newMemGraph() *memGraph {
	return &memGraph{
		yields:        map[int64]decimal.NullDecimal{},
		ingredients:   map[int64][]model.RecipeIngredient{},
		units:         map[int64]decimal.Decimal{},
		variantPrices: map[int64]decimal.Decimal{},
		productPrices: map[int64]decimal.Decimal{},
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func id(v int64) *int64 { return &v }

func (g *memGraph) recipe(recipeID int64, yield string) *memGraph {
	if yield == "" {
		g.yields[recipeID] = decimal.NullDecimal{}
	} else {
		g.yields[recipeID] = decimal.NewNullDecimal(d(yield))
	}
	return g
}

func (g *memGraph) unit(unitID int64, factor string) *memGraph {
	g.units[unitID] = d(factor)
	return g
}

func (g *memGraph) product(recipeID, productID int64, variantID *int64, qty string, unitID int64) *memGraph {
	g.nextID++
	g.ingredients[recipeID] = append(g.ingredients[recipeID], model.RecipeIngredient{
		ID: g.nextID, RecipeID: recipeID, ProductID: id(productID), VariantID: variantID,
		Quantity: d(qty), UnitID: unitID,
	})
	return g
}

func (g *memGraph) sub(recipeID, subID int64, qty string, unitID int64) *memGraph {
	g.nextID++
	g.ingredients[recipeID] = append(g.ingredients[recipeID], model.RecipeIngredient{
		ID: g.nextID, RecipeID: recipeID, SubRecipeID: id(subID), Quantity: d(qty), UnitID: unitID,
	})
	return g
}

func (g *memGraph) RecipeYield(_ context.Context, recipeID int64) (decimal.NullDecimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	y, ok := g.yields[recipeID]
	if !ok {
		return decimal.NullDecimal{}, apperror.NotFound("recipe %d not found", recipeID)
	}
	return y, nil
}

func (g *memGraph) RecipeIngredients(_ context.Context, recipeID int64) ([]model.RecipeIngredient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.RecipeIngredient(nil), g.ingredients[recipeID]...), nil
}

func (g *memGraph) UnitConversionFactor(_ context.Context, unitID int64) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.units[unitID]
	if !ok {
		return decimal.Zero, apperror.NotFound("unit %d not found", unitID)
	}
	return f, nil
}

func (g *memGraph) LatestPrice(_ context.Context, ref model.ProductRef) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ref.VariantID != nil {
		p, ok := g.variantPrices[*ref.VariantID]
		if !ok {
			return decimal.Zero, apperror.NotFound("no price for variant %d", *ref.VariantID)
		}
		return p, nil
	}
	p, ok := g.productPrices[ref.ProductID]
	if !ok {
		return decimal.Zero, apperror.NotFound("no price for product %d", ref.ProductID)
	}
	return p, nil
}

func (g *memGraph) SubRecipeEdges(_ context.Context, recipeID int64) ([]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edgeReads++
	if _, ok := g.yields[recipeID]; !ok {
		return nil, apperror.NotFound("recipe %d not found", recipeID)
	}
	var out []int64
	for _, ing := range g.ingredients[recipeID] {
		if ing.SubRecipeID != nil {
			out = append(out, *ing.SubRecipeID)
		}
	}
	return out, nil
}
