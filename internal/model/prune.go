package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Pruning method names accepted by the robust wrapper.
const (
	PruneByClass     = "prune_by_class"
	PruneByNoiseRate = "prune_by_noise_rate"
	PruneBoth        = "both"
)

// validPruneMethod reports whether name is one of the supported methods.
func validPruneMethod(name string) bool {
	switch name {
	case PruneByClass, PruneByNoiseRate, PruneBoth:
		return true
	}
	return false
}

// pruneByClassMask flags, for each observed class, the examples with the
// lowest predicted self-probability. The count per class is the
// estimated number of mislabeled examples observed as that class (the
// off-diagonal mass of its joint row), scaled by fracNoise.
func pruneByClassMask(psx *mat.Dense, s []int, joint *mat.Dense, k int, fracNoise float64) []bool {
	n := len(s)
	mask := make([]bool, n)
	byClass := indexesByClass(s, k)
	for c := 0; c < k; c++ {
		offDiag := 0.0
		for j := 0; j < k; j++ {
			if j != c {
				offDiag += joint.At(c, j)
			}
		}
		remove := int(math.Round(fracNoise * offDiag * float64(n)))
		if remove <= 0 {
			continue
		}
		members := byClass[c]
		if remove >= len(members) {
			remove = len(members) - 1
		}
		if remove <= 0 {
			continue
		}
		ranked := append([]int(nil), members...)
		sort.SliceStable(ranked, func(a, b int) bool {
			pa, pb := psx.At(ranked[a], c), psx.At(ranked[b], c)
			if pa != pb {
				return pa < pb
			}
			return ranked[a] < ranked[b]
		})
		for _, idx := range ranked[:remove] {
			mask[idx] = true
		}
	}
	return mask
}

// pruneByNoiseRateMask flags, for each off-diagonal (observed, latent)
// cell, the examples observed as that row's class with the largest
// probability margin toward the cell's latent class. Counts come from
// the calibrated joint scaled by fracNoise.
func pruneByNoiseRateMask(psx *mat.Dense, s []int, joint *mat.Dense, k int, fracNoise float64) []bool {
	n := len(s)
	mask := make([]bool, n)
	byClass := indexesByClass(s, k)
	for obs := 0; obs < k; obs++ {
		for latent := 0; latent < k; latent++ {
			if latent == obs {
				continue
			}
			remove := int(math.Round(fracNoise * joint.At(obs, latent) * float64(n)))
			if remove <= 0 {
				continue
			}
			members := byClass[obs]
			if remove > len(members) {
				remove = len(members)
			}
			ranked := append([]int(nil), members...)
			sort.SliceStable(ranked, func(a, b int) bool {
				ma := psx.At(ranked[a], latent) - psx.At(ranked[a], obs)
				mb := psx.At(ranked[b], latent) - psx.At(ranked[b], obs)
				if ma != mb {
					return ma > mb
				}
				return ranked[a] < ranked[b]
			})
			for _, idx := range ranked[:remove] {
				mask[idx] = true
			}
		}
	}
	return mask
}

// intersectMasks keeps only examples flagged by both masks.
func intersectMasks(a, b []bool) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

// ensureClassCoverage unflags the most self-confident example of any
// observed class the mask would wipe out entirely, so the refit always
// sees every class.
func ensureClassCoverage(mask []bool, psx *mat.Dense, s []int, k int) {
	byClass := indexesByClass(s, k)
	for c := 0; c < k; c++ {
		members := byClass[c]
		if len(members) == 0 {
			continue
		}
		survivors := 0
		for _, idx := range members {
			if !mask[idx] {
				survivors++
			}
		}
		if survivors > 0 {
			continue
		}
		best := members[0]
		for _, idx := range members[1:] {
			if psx.At(idx, c) > psx.At(best, c) {
				best = idx
			}
		}
		mask[best] = false
	}
}

// indexesByClass groups example indexes by observed label, preserving
// dataset order within each class.
func indexesByClass(s []int, k int) [][]int {
	out := make([][]int, k)
	for i, label := range s {
		out[label] = append(out[label], i)
	}
	return out
}

// maskToIndexes returns the flagged indexes in ascending order.
func maskToIndexes(mask []bool) []int {
	var out []int
	for i, flagged := range mask {
		if flagged {
			out = append(out, i)
		}
	}
	return out
}
