package model

import "math"

// ConvergenceConfig controls early stopping of the softmax training loop.
type ConvergenceConfig struct {
	// Patience is the number of epochs without significant loss
	// improvement tolerated before training stops. Zero disables
	// early stopping.
	Patience int

	// Threshold is the minimum relative loss improvement that counts
	// as progress: (oldLoss - newLoss) / oldLoss.
	Threshold float64
}

// DefaultConvergenceConfig matches the training defaults: stop after
// 5 epochs with less than 0.01% relative improvement each.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{Patience: 5, Threshold: 1e-4}
}

// ConvergenceTracker watches a loss sequence and reports when it has
// flattened out for longer than the configured patience.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	bestLoss        float64
	lastSignificant float64
	staleCount      int
	epochs          int
}

// NewConvergenceTracker returns a tracker with no observed losses.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestLoss:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records one epoch's loss and returns true once training should
// stop. With Patience == 0 it only records and never stops.
func (c *ConvergenceTracker) Update(loss float64) bool {
	c.epochs++
	if loss < c.bestLoss {
		c.bestLoss = loss
	}
	if c.config.Patience <= 0 {
		return false
	}

	if c.epochs == 1 {
		c.lastSignificant = loss
		return false
	}

	relative := (c.lastSignificant - loss) / math.Abs(c.lastSignificant)
	if relative >= c.config.Threshold {
		c.lastSignificant = loss
		c.staleCount = 0
		return false
	}

	c.staleCount++
	return c.staleCount >= c.config.Patience
}

// BestLoss returns the lowest loss seen so far.
func (c *ConvergenceTracker) BestLoss() float64 {
	return c.bestLoss
}

// StaleCount returns how many consecutive epochs lacked significant
// improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Epochs returns the number of recorded epochs.
func (c *ConvergenceTracker) Epochs() int {
	return c.epochs
}
