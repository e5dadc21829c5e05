package noise

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Corrupt samples an observed label for every clean label in y by
// drawing from the matching row of the noise matrix. The input is left
// untouched; the result is deterministic per seed.
func Corrupt(y []int, m *mat.Dense, seed int64) ([]int, error) {
	if err := Validate(m); err != nil {
		return nil, fmt.Errorf("corrupt labels: %w", err)
	}
	k, _ := m.Dims()
	rng := rand.New(rand.NewSource(seed))

	out := make([]int, len(y))
	for i, label := range y {
		if label < 0 || label >= k {
			return nil, fmt.Errorf("label %d at index %d outside [0, %d)", label, i, k)
		}
		r := rng.Float64()
		acc := 0.0
		picked := k - 1 // absorb rounding residue in the last class
		for j := 0; j < k; j++ {
			acc += m.At(label, j)
			if r < acc {
				picked = j
				break
			}
		}
		out[i] = picked
	}
	return out, nil
}

// CountFlips returns how many positions differ between the clean and
// observed label slices.
func CountFlips(clean, observed []int) int {
	flips := 0
	for i := range clean {
		if i < len(observed) && clean[i] != observed[i] {
			flips++
		}
	}
	return flips
}
