package costing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const DefaultMaxDepth = 32

type Options struct {
	// MaxDepth bounds sub-recipe nesting. Zero means DefaultMaxDepth.
	MaxDepth int
	// Concurrency bounds the data lookups in flight across one whole
	// resolution. Values below 2 resolve sequentially.
	Concurrency int
}

// Resolver computes recipe costs. It holds no state between calls.
type Resolver struct {
	src  Source
	opts Options
}

func NewResolver(src Source, opts Options) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Resolver{src: src, opts: opts}
}

// Line is the cost contribution of one ingredient row.
type Line struct {
	IngredientID   int64           `json:"recipe_ingredient_id"`
	ProductID      *int64          `json:"product_id,omitempty"`
	VariantID      *int64          `json:"variant_id,omitempty"`
	SubRecipeID    *int64          `json:"sub_recipe_id,omitempty"`
	QuantityInBase decimal.Decimal `json:"quantity_in_base_unit"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Cost           decimal.Decimal `json:"cost"`
}

// Breakdown is a full cost answer for one recipe. CostPerUnit is nil when the
// recipe has no usable yield.
type Breakdown struct {
	RecipeID    int64               `json:"recipe_id"`
	TotalCost   decimal.Decimal     `json:"total_cost"`
	Yield       decimal.NullDecimal `json:"yield"`
	CostPerUnit *decimal.Decimal    `json:"cost_per_unit"`
	Lines       []Line              `json:"lines"`
}

// CalculateRecipeCost returns the cost of one full batch of the recipe.
func (r *Resolver) CalculateRecipeCost(ctx context.Context, recipeID int64) (decimal.Decimal, error) {
	b, err := r.Breakdown(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.TotalCost, nil
}

// CalculateCostPerUnit returns CalculateRecipeCost divided by the recipe yield.
func (r *Resolver) CalculateCostPerUnit(ctx context.Context, recipeID int64) (decimal.Decimal, error) {
	b, err := r.Breakdown(ctx, recipeID)
	if err != nil {
		return decimal.Zero, err
	}
	if b.CostPerUnit == nil {
		return decimal.Zero, invalidYield(recipeID)
	}
	return *b.CostPerUnit, nil
}

func (r *Resolver) Breakdown(ctx context.Context, recipeID int64) (b *Breakdown, err error) {
	start := time.Now()
	defer func() {
		code := "OK"
		if err != nil {
			code = string(apperror.CodeOf(err))
		}
		costResolutions.WithLabelValues(code).Observe(time.Since(start).Seconds())
	}()

	w := &walk{r: r, memo: map[int64]batch{}}
	if r.opts.Concurrency > 1 {
		w.sem = semaphore.NewWeighted(int64(r.opts.Concurrency))
	}
	res, err := w.resolve(ctx, recipeID, nil, true)
	if err != nil {
		return nil, err
	}

	b = &Breakdown{
		RecipeID:  recipeID,
		TotalCost: res.cost,
		Yield:     res.yield,
		Lines:     res.lines,
	}
	if validYield(res.yield) {
		perUnit := res.cost.Div(res.yield.Decimal)
		b.CostPerUnit = &perUnit
	}
	return b, nil
}

type batch struct {
	cost  decimal.Decimal
	yield decimal.NullDecimal
	lines []Line
}

// walk is the per-call state of one resolution: memoized sub-recipe batches
// and the lookup limiter shared by every level of the tree.
type walk struct {
	r    *Resolver
	sem  *semaphore.Weighted
	mu   sync.Mutex
	memo map[int64]batch
}

// fetch runs one Source lookup under the walk's limiter. Only leaf lookups
// hold a slot, so a parent waiting on its children never blocks them.
func fetch[T any](ctx context.Context, w *walk, fn func(context.Context) (T, error)) (T, error) {
	if w.sem != nil {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			var zero T
			return zero, err
		}
		defer w.sem.Release(1)
	}
	return fn(ctx)
}

func (w *walk) cached(id int64) (batch, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.memo[id]
	return b, ok
}

func (w *walk) store(id int64, b batch) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.memo[id] = b
}

func (w *walk) resolve(ctx context.Context, recipeID int64, path []int64, keepLines bool) (batch, error) {
	if b, ok := w.cached(recipeID); ok && !keepLines {
		return b, nil
	}

	for _, id := range path {
		if id == recipeID {
			return batch{}, apperror.Newf(apperror.CodeCycleRejected,
				"recipe %d is its own ingredient through %v", recipeID, path)
		}
	}
	if len(path) >= w.r.opts.MaxDepth {
		return batch{}, apperror.Newf(apperror.CodeDepthExceeded,
			"recipe %d exceeds the maximum sub-recipe depth of %d", recipeID, w.r.opts.MaxDepth)
	}
	if err := ctx.Err(); err != nil {
		return batch{}, err
	}

	yield, err := fetch(ctx, w, func(ctx context.Context) (decimal.NullDecimal, error) {
		return w.r.src.RecipeYield(ctx, recipeID)
	})
	if err != nil {
		return batch{}, err
	}
	ingredients, err := fetch(ctx, w, func(ctx context.Context) ([]model.RecipeIngredient, error) {
		return w.r.src.RecipeIngredients(ctx, recipeID)
	})
	if err != nil {
		return batch{}, err
	}

	next := append(append([]int64(nil), path...), recipeID)
	lines := make([]Line, len(ingredients))

	if w.r.opts.Concurrency > 1 && len(ingredients) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.r.opts.Concurrency)
		for i := range ingredients {
			i := i
			g.Go(func() error {
				line, err := w.line(gctx, ingredients[i], next)
				lines[i] = line
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return batch{}, err
		}
	} else {
		for i := range ingredients {
			line, err := w.line(ctx, ingredients[i], next)
			if err != nil {
				return batch{}, err
			}
			lines[i] = line
		}
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Cost)
	}

	b := batch{cost: total, yield: yield, lines: lines}
	w.store(recipeID, batch{cost: total, yield: yield})
	return b, nil
}

func (w *walk) line(ctx context.Context, ing model.RecipeIngredient, path []int64) (Line, error) {
	l := Line{IngredientID: ing.ID}

	ref, err := ing.Ref()
	if err != nil {
		return l, apperror.Wrap(apperror.CodeConstraintViolation, "invalid ingredient row", err)
	}

	factor, err := fetch(ctx, w, func(ctx context.Context) (decimal.Decimal, error) {
		return w.r.src.UnitConversionFactor(ctx, ing.UnitID)
	})
	if err != nil {
		return l, fmt.Errorf("ingredient %d: %w", ing.ID, err)
	}
	l.QuantityInBase = ing.Quantity.Mul(factor)

	switch ref := ref.(type) {
	case model.ProductRef:
		l.ProductID = &ref.ProductID
		l.VariantID = ref.VariantID
		price, err := fetch(ctx, w, func(ctx context.Context) (decimal.Decimal, error) {
			return w.r.src.LatestPrice(ctx, ref)
		})
		if err != nil {
			return l, fmt.Errorf("ingredient %d: %w", ing.ID, err)
		}
		l.UnitCost = price
		l.Cost = price.Mul(l.QuantityInBase)

	case model.SubRecipeRef:
		l.SubRecipeID = &ref.RecipeID
		sub, err := w.resolve(ctx, ref.RecipeID, path, false)
		if err != nil {
			return l, fmt.Errorf("sub-recipe %d: %w", ref.RecipeID, err)
		}
		if !validYield(sub.yield) {
			return l, invalidYield(ref.RecipeID)
		}
		// Multiply before dividing to keep the scaled share exact where possible.
		l.UnitCost = sub.cost.Div(sub.yield.Decimal)
		l.Cost = sub.cost.Mul(l.QuantityInBase).Div(sub.yield.Decimal)

	default:
		return l, errors.New("unknown ingredient reference")
	}

	return l, nil
}

func validYield(y decimal.NullDecimal) bool {
	return y.Valid && y.Decimal.IsPositive()
}

func invalidYield(recipeID int64) error {
	return apperror.Newf(apperror.CodeInvalidYield, "recipe %d has no positive yield", recipeID)
}
