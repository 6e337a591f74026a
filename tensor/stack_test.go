package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, shape []int, data []float32) *Tensor {
	t.Helper()
	tt, err := New(shape, data)
	require.NoError(t, err)
	return tt
}

func TestStackUniformSamples(t *testing.T) {
	samples := []*Tensor{
		mustNew(t, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6}),
		mustNew(t, []int{2, 3}, []float32{7, 8, 9, 10, 11, 12}),
	}

	out, err := Stack(samples)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, out.Shape)
	assert.Equal(t, float32(1), out.At(0, 0, 0))
	assert.Equal(t, float32(12), out.At(1, 1, 2))
}

func TestStackPadsRaggedExtents(t *testing.T) {
	samples := []*Tensor{
		mustNew(t, []int{2, 2}, []float32{1, 2, 3, 4}),
		mustNew(t, []int{3, 1}, []float32{5, 6, 7}),
	}

	out, err := Stack(samples)
	require.NoError(t, err)
	require.Equal(t, []int{2, 3, 2}, out.Shape)

	// Original values sit in the low-index corner of each slot,
	// in their original order.
	assert.Equal(t, float32(1), out.At(0, 0, 0))
	assert.Equal(t, float32(2), out.At(0, 0, 1))
	assert.Equal(t, float32(3), out.At(0, 1, 0))
	assert.Equal(t, float32(4), out.At(0, 1, 1))
	assert.Equal(t, float32(0), out.At(0, 2, 0), "pad region stays zero")

	assert.Equal(t, float32(5), out.At(1, 0, 0))
	assert.Equal(t, float32(6), out.At(1, 1, 0))
	assert.Equal(t, float32(7), out.At(1, 2, 0))
	assert.Equal(t, float32(0), out.At(1, 0, 1))
}

func TestStackPromotesRank(t *testing.T) {
	samples := []*Tensor{
		mustNew(t, []int{3}, []float32{1, 2, 3}),
		mustNew(t, []int{2, 2}, []float32{4, 5, 6, 7}),
	}

	out, err := Stack(samples)
	require.NoError(t, err)
	// rank-1 sample becomes (3, 1), padded into (3, 2).
	assert.Equal(t, []int{2, 3, 2}, out.Shape)
	assert.Equal(t, float32(1), out.At(0, 0, 0))
	assert.Equal(t, float32(3), out.At(0, 2, 0))
	assert.Equal(t, float32(7), out.At(1, 1, 1))
}

func TestStackLeadingDimMatchesSampleCount(t *testing.T) {
	var samples []*Tensor
	for i := 0; i < 7; i++ {
		samples = append(samples, mustNew(t, []int{2}, []float32{float32(i), float32(i)}))
	}
	out, err := Stack(samples)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Shape[0])
}

func TestStackEmptyInput(t *testing.T) {
	_, err := Stack(nil)
	assert.Error(t, err)
}

func TestStackShapeMismatch(t *testing.T) {
	// A sample whose declared shape disagrees with its payload is the
	// one thing normalization cannot fix.
	broken := &Tensor{Shape: []int{4, 4}, Strides: calculateStrides([]int{4, 4}), Data: make([]float32, 2), NumElems: 16}
	samples := []*Tensor{
		mustNew(t, []int{2, 2}, []float32{1, 2, 3, 4}),
		broken,
	}

	_, err := Stack(samples)
	require.Error(t, err)

	var mismatch *ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, [][]int{{4, 4}}, mismatch.Shapes)
}
