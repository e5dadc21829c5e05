// Package dataset synthesizes labeled Gaussian-cluster data and provides
// the standardization and splitting steps of the sweep pipeline.
package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Options configures synthetic blob generation.
type Options struct {
	Classes    int     `json:"classes" yaml:"classes"`
	Samples    int     `json:"samples" yaml:"samples"`
	Features   int     `json:"features" yaml:"features"`
	ClusterStd float64 `json:"cluster_std" yaml:"cluster_std"`
	Separation float64 `json:"separation" yaml:"separation"`
	Seed       int64   `json:"seed" yaml:"seed"`
}

// DefaultOptions matches the CLI defaults: 3 classes, 600 samples in a
// 2D plane.
func DefaultOptions() Options {
	return Options{
		Classes:    3,
		Samples:    600,
		Features:   2,
		ClusterStd: 1.0,
		Separation: 5.0,
		Seed:       1,
	}
}

// Validate checks the generation parameters.
func (o Options) Validate() error {
	if o.Classes < 2 {
		return fmt.Errorf("classes must be at least 2, got %d", o.Classes)
	}
	if o.Samples < o.Classes {
		return fmt.Errorf("samples (%d) must cover every class (%d)", o.Samples, o.Classes)
	}
	if o.Features < 1 {
		return fmt.Errorf("features must be at least 1, got %d", o.Features)
	}
	if o.ClusterStd <= 0 {
		return fmt.Errorf("cluster_std must be positive, got %v", o.ClusterStd)
	}
	if o.Separation <= 0 {
		return fmt.Errorf("separation must be positive, got %v", o.Separation)
	}
	return nil
}

// Generate draws isotropic Gaussian clusters, one center per class,
// centers uniform in [-separation, separation] per feature. Class sizes
// differ by at most one, labels are 0..Classes-1 in row order, and the
// result is deterministic per seed.
func Generate(opts Options) (*mat.Dense, []int, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, fmt.Errorf("dataset options: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	centers := mat.NewDense(opts.Classes, opts.Features, nil)
	for c := 0; c < opts.Classes; c++ {
		for j := 0; j < opts.Features; j++ {
			centers.Set(c, j, (rng.Float64()*2-1)*opts.Separation)
		}
	}

	X := mat.NewDense(opts.Samples, opts.Features, nil)
	y := make([]int, opts.Samples)
	row := 0
	for c := 0; c < opts.Classes; c++ {
		size := opts.Samples / opts.Classes
		if c < opts.Samples%opts.Classes {
			size++
		}
		for i := 0; i < size; i++ {
			for j := 0; j < opts.Features; j++ {
				X.Set(row, j, centers.At(c, j)+rng.NormFloat64()*opts.ClusterStd)
			}
			y[row] = c
			row++
		}
	}
	return X, y, nil
}
