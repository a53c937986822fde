package grade

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		mark float64
		want Letter
	}{
		{mark: 100, want: A},
		{mark: 75, want: A},
		{mark: 74.99, want: B},
		{mark: 60, want: B},
		{mark: 59.5, want: S},
		{mark: 40, want: S},
		{mark: 39.99, want: F},
		{mark: 0, want: F},
		{mark: -10, want: F},
		{mark: 120, want: A},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.mark), "Classify(%v)", tt.mark)
	}
}

func TestClassify_monotonic(t *testing.T) {
	prev := Classify(-50)
	for m := -50.0; m <= 150; m += 0.25 {
		curr := Classify(m)
		assert.Contains(t, Letters, curr)
		if curr.Rank() < prev.Rank() {
			t.Fatalf("Classify(%v) = %s; lower than previous band %s", m, curr, prev)
		}
		prev = curr
	}
}

func TestIsPass(t *testing.T) {
	assert.True(t, IsPass(40))
	assert.True(t, IsPass(math.Inf(1)))
	assert.False(t, IsPass(39.999))
}
