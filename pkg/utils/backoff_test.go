package utils

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoff(t *testing.T) {
	initial := 30 * time.Second
	max := 60 * time.Second

	assert.Equal(t, initial, CalculateBackoff(0, initial, max, 2.0))
	assert.Equal(t, max, CalculateBackoff(1, initial, max, 2.0))
	assert.Equal(t, max, CalculateBackoff(10, initial, max, 2.0))

	// Negative attempts behave like the first.
	assert.Equal(t, initial, CalculateBackoff(-3, initial, max, 2.0))
}

func TestCalculateBackoffGrowth(t *testing.T) {
	initial := time.Second
	max := time.Hour

	assert.Equal(t, time.Second, CalculateBackoff(0, initial, max, 2.0))
	assert.Equal(t, 2*time.Second, CalculateBackoff(1, initial, max, 2.0))
	assert.Equal(t, 4*time.Second, CalculateBackoff(2, initial, max, 2.0))
	assert.Equal(t, 8*time.Second, CalculateBackoff(3, initial, max, 2.0))
}

// Backoff is monotone in the attempt number and always lands inside
// [initialDelay, maxDelay].
func TestProperty_BackoffBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("backoff stays within bounds and never shrinks", prop.ForAll(
		func(attempt int, initialSec int) bool {
			initial := time.Duration(initialSec) * time.Second
			max := 2 * initial

			delay := CalculateBackoff(attempt, initial, max, 2.0)
			if delay < initial || delay > max {
				return false
			}

			next := CalculateBackoff(attempt+1, initial, max, 2.0)
			return next >= delay
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 600),
	))

	properties.TestingRun(t)
}
