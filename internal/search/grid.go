// Package search evaluates hyperparameter grids: it enumerates the
// Cartesian product of a parameter grid, fits one estimator clone per
// configuration across a bounded worker pool, and reduces the per-trial
// validation scores to the best configuration. Enumeration order is
// deterministic, so reruns with the same inputs select the same winner.
package search

import (
	"fmt"

	"github.com/cwbudde/noisesweep/internal/model"
)

// Grid is an ordered hyperparameter grid. Keys enumerate in insertion
// order and each key carries a fixed, ordered value sequence.
type Grid struct {
	keys   []string
	values map[string][]any
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{values: make(map[string][]any)}
}

// Add appends a key with its candidate values, replacing the values but
// keeping the position when the key is already present. It returns the
// grid for chaining.
func (g *Grid) Add(key string, values ...any) *Grid {
	if _, ok := g.values[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.values[key] = values
	return g
}

// Keys returns the grid keys in declaration order.
func (g *Grid) Keys() []string {
	return append([]string(nil), g.keys...)
}

// Values returns the candidate values declared for key.
func (g *Grid) Values(key string) []any {
	return append([]any(nil), g.values[key]...)
}

// Size returns the Cartesian product size, 0 for an empty grid.
func (g *Grid) Size() int {
	if len(g.keys) == 0 {
		return 0
	}
	size := 1
	for _, key := range g.keys {
		size *= len(g.values[key])
	}
	return size
}

// Validate rejects empty grids and keys with no candidate values.
func (g *Grid) Validate() error {
	if g == nil || len(g.keys) == 0 {
		return fmt.Errorf("parameter grid is empty")
	}
	for _, key := range g.keys {
		if len(g.values[key]) == 0 {
			return fmt.Errorf("grid key %q has no values", key)
		}
	}
	return nil
}

// Configurations enumerates the Cartesian product odometer-style: the
// last-declared key varies fastest, values in declared order. The slice
// index of each configuration is its stable trial index.
func (g *Grid) Configurations() []model.Params {
	if g.Validate() != nil {
		return nil
	}
	total := g.Size()
	configs := make([]model.Params, 0, total)
	counters := make([]int, len(g.keys))
	for {
		p := make(model.Params, len(g.keys))
		for d, key := range g.keys {
			p[key] = g.values[key][counters[d]]
		}
		configs = append(configs, p)

		d := len(counters) - 1
		for d >= 0 {
			counters[d]++
			if counters[d] < len(g.values[g.keys[d]]) {
				break
			}
			counters[d] = 0
			d--
		}
		if d < 0 {
			return configs
		}
	}
}
