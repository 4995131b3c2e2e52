package stresstest

import (
	"math"
	"time"
)

// SettleInterval is the pause after every measured round and every ramp step.
// It keeps warm-up and measurement comparable across runs.
const SettleInterval = 100 * time.Millisecond

// RampStepCount returns how many warm-up steps precede the measured cycles
func RampStepCount(cycles int) int {
	if cycles <= 0 {
		return 0
	}
	return int(math.Ceil(float64(cycles) / 2))
}

// RampStepSize returns the number of concurrent requests for warm-up step i
// of steps: ceil(exp(i/steps * ln(concurrency))), clamped to [1, concurrency].
func RampStepSize(i, steps, concurrency int) int {
	if concurrency <= 1 || steps <= 0 {
		return 1
	}
	scale := float64(i) / float64(steps) * math.Log(float64(concurrency))
	n := int(math.Ceil(math.Exp(scale)))
	if n < 1 {
		return 1
	}
	if n > concurrency {
		return concurrency
	}
	return n
}

// RampSteps returns the request count of every warm-up step, in order
func RampSteps(cycles, concurrency int) []int {
	steps := RampStepCount(cycles)
	sizes := make([]int, steps)
	for i := range sizes {
		sizes[i] = RampStepSize(i, steps, concurrency)
	}
	return sizes
}
