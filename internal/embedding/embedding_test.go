package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	v, err := Normalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, Dot(v, v), 1e-6)

	_, err = Normalize([]float32{0, 0, 0})
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float32{2, 0}
	_, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0}, in)
}

func TestDotOfOrthogonalVectors(t *testing.T) {
	assert.Zero(t, Dot([]float32{1, 0}, []float32{0, 1}))
	assert.InDelta(t, math.Sqrt(0.5), Dot([]float32{1, 0}, []float32{float32(math.Sqrt(0.5)), float32(math.Sqrt(0.5))}), 1e-6)
}
