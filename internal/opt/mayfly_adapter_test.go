package opt

import (
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at the origin.
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	optimizer := NewMayfly(100, 20, 42)

	dim := 3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := 0; i < dim; i++ {
		lower[i] = -10
		upper[i] = 10
	}

	best, cost := optimizer.Run(sphere, lower, upper, dim)

	if len(best) != dim {
		t.Fatalf("expected %d parameters, got %d", dim, len(best))
	}
	if cost > 0.5 {
		t.Errorf("cost = %f, want near 0", cost)
	}
	for i, v := range best {
		if math.Abs(v) > 1.5 {
			t.Errorf("parameter %d = %f, want near 0", i, v)
		}
	}
}

func TestMayflyAdapterPerDimensionBounds(t *testing.T) {
	// Asymmetric box away from the origin: the sphere minimum inside
	// [2,6]x[-1,0] sits at (2, 0) with cost 4. The adapter must respect
	// each dimension's own range, which the raw library cannot.
	lower := []float64{2, -1}
	upper := []float64{6, 0}

	optimizer := NewMayfly(100, 20, 7)
	best, cost := optimizer.Run(sphere, lower, upper, 2)

	for i := range best {
		if best[i] < lower[i]-1e-9 || best[i] > upper[i]+1e-9 {
			t.Errorf("parameter %d = %f outside [%f, %f]", i, best[i], lower[i], upper[i])
		}
	}
	// Must at least beat the box midpoint (4, -0.5) with cost 16.25.
	if cost >= 16.25 {
		t.Errorf("cost = %f, want < 16.25 (midpoint)", cost)
	}
	if cost < 4-1e-9 {
		t.Errorf("cost = %f below the box minimum 4, bounds not honored", cost)
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	dim := 2
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	// popSize must be >=20 for mayfly v0.1.0.
	optimizer1 := NewMayfly(50, 20, 123)
	_, cost1 := optimizer1.Run(sphere, lower, upper, dim)

	optimizer2 := NewMayfly(50, 20, 123)
	_, cost2 := optimizer2.Run(sphere, lower, upper, dim)

	if cost1 != cost2 {
		t.Errorf("non-deterministic: cost1=%f, cost2=%f", cost1, cost2)
	}
}

func TestNewMayflyRaisesSmallPopulations(t *testing.T) {
	optimizer := NewMayfly(0, 5, 1)
	adapter, ok := optimizer.(*MayflyAdapter)
	if !ok {
		t.Fatalf("NewMayfly returned %T", optimizer)
	}
	if adapter.popSize < 20 {
		t.Errorf("popSize = %d, want >= 20", adapter.popSize)
	}
	if adapter.maxIters < 1 {
		t.Errorf("maxIters = %d, want >= 1", adapter.maxIters)
	}
}
