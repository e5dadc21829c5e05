package model

import (
	"math"
	"testing"
)

func TestConvergenceTracker_StopsAfterPatience(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Patience: 2, Threshold: 0.01})

	// 1.0 -> 0.5 is a 50% improvement, resets the stale counter.
	// 0.499 and 0.4989 are each <1% relative improvement from 0.5.
	losses := []float64{1.0, 0.5, 0.499, 0.4989}
	want := []bool{false, false, false, true}

	for i, loss := range losses {
		got := tracker.Update(loss)
		if got != want[i] {
			t.Errorf("Update(%v) = %v, want %v (step %d, stale %d)", loss, got, want[i], i, tracker.StaleCount())
		}
	}
}

func TestConvergenceTracker_ImprovementResetsStale(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{Patience: 2, Threshold: 0.01})

	for _, loss := range []float64{1.0, 0.999} {
		if tracker.Update(loss) {
			t.Fatalf("converged too early at loss %v", loss)
		}
	}
	if tracker.StaleCount() != 1 {
		t.Fatalf("StaleCount = %d, want 1", tracker.StaleCount())
	}

	// A 50% drop must clear the stale counter.
	if tracker.Update(0.5) {
		t.Fatal("converged on a significant improvement")
	}
	if tracker.StaleCount() != 0 {
		t.Errorf("StaleCount after improvement = %d, want 0", tracker.StaleCount())
	}
}

func TestConvergenceTracker_ZeroPatienceNeverStops(t *testing.T) {
	tracker := NewConvergenceTracker(ConvergenceConfig{})
	for i := 0; i < 50; i++ {
		if tracker.Update(1.0) {
			t.Fatalf("tracker with zero patience stopped at step %d", i)
		}
	}
	if tracker.Epochs() != 50 {
		t.Errorf("Epochs = %d, want 50", tracker.Epochs())
	}
}

func TestConvergenceTracker_BestLoss(t *testing.T) {
	tracker := NewConvergenceTracker(DefaultConvergenceConfig())
	if !math.IsInf(tracker.BestLoss(), 1) {
		t.Fatalf("BestLoss before updates = %v, want +Inf", tracker.BestLoss())
	}
	for _, loss := range []float64{0.9, 0.3, 0.5} {
		tracker.Update(loss)
	}
	if tracker.BestLoss() != 0.3 {
		t.Errorf("BestLoss = %v, want 0.3", tracker.BestLoss())
	}
}
