package costing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
)

// Guard decides whether a new recipe -> sub-recipe edge keeps the graph acyclic.
type Guard struct {
	edges EdgeReader
}

func NewGuard(edges EdgeReader) *Guard {
	return &Guard{edges: edges}
}

// FindCycle returns the cycle the edge recipeID -> candidateID would close,
// as [recipeID, candidateID, ..., recipeID], or nil when the edge is safe.
func (g *Guard) FindCycle(ctx context.Context, recipeID, candidateID int64) ([]int64, error) {
	if recipeID == candidateID {
		cycleChecks.WithLabelValues("cycle").Inc()
		return []int64{recipeID, recipeID}, nil
	}

	parent := map[int64]int64{}
	visited := map[int64]bool{}
	stack := []int64{candidateID}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		subs, err := g.edges.SubRecipeEdges(ctx, id)
		if err != nil {
			cycleChecks.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("traverse recipe %d: %w", id, err)
		}

		for _, sub := range subs {
			if sub == recipeID {
				cycleChecks.WithLabelValues("cycle").Inc()
				return buildPath(parent, candidateID, id, recipeID), nil
			}
			if !visited[sub] {
				if _, seen := parent[sub]; !seen && sub != candidateID {
					parent[sub] = id
				}
				stack = append(stack, sub)
			}
		}
	}

	cycleChecks.WithLabelValues("ok").Inc()
	return nil, nil
}

// WouldCreateCycle reports whether adding recipeID -> candidateID closes a cycle.
func (g *Guard) WouldCreateCycle(ctx context.Context, recipeID, candidateID int64) (bool, error) {
	path, err := g.FindCycle(ctx, recipeID, candidateID)
	if err != nil {
		return false, err
	}
	return path != nil, nil
}

// Check is WouldCreateCycle expressed as a CycleRejected error.
func (g *Guard) Check(ctx context.Context, recipeID, candidateID int64) error {
	path, err := g.FindCycle(ctx, recipeID, candidateID)
	if err != nil {
		return err
	}
	if path != nil {
		return apperror.Newf(apperror.CodeCycleRejected,
			"adding sub-recipe %d to recipe %d would create a cycle (%s)",
			candidateID, recipeID, formatPath(path)).
			WithContext("cycle", path)
	}
	return nil
}

func buildPath(parent map[int64]int64, candidateID, last, recipeID int64) []int64 {
	rev := []int64{last}
	for node := last; node != candidateID; {
		node = parent[node]
		rev = append(rev, node)
	}

	path := make([]int64, 0, len(rev)+2)
	path = append(path, recipeID)
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return append(path, recipeID)
}

func formatPath(path []int64) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " -> ")
}
