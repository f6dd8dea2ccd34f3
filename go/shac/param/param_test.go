package param

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscreteEncodeDecodeRoundTrip(t *testing.T) {
	d, err := NewDiscrete("v", []any{int64(0), int64(1), int64(2), int64(3), int64(4)})
	require.NoError(t, err)

	for _, v := range []int64{0, 1, 2, 3, 4} {
		f, err := d.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, v, d.Decode(f))
	}
}

func TestDiscreteDecodeClamps(t *testing.T) {
	d, err := NewDiscrete("v", []any{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, "a", d.Decode(-5))
	assert.Equal(t, "c", d.Decode(50))
	assert.Equal(t, "b", d.Decode(1.4))
}

func TestDiscreteRejectsMixedTypes(t *testing.T) {
	_, err := NewDiscrete("v", []any{1, "two"})
	assert.Error(t, err)
}

func TestDiscreteSampleIsUniform(t *testing.T) {
	d, err := NewDiscrete("v", []any{int64(0), int64(1)})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	counts := map[any]int{}
	for i := 0; i < 2000; i++ {
		counts[d.Sample(rng)]++
	}
	assert.InDelta(t, 1000, counts[int64(0)], 150)
	assert.InDelta(t, 1000, counts[int64(1)], 150)
}

func TestUniformContinuousHalfOpenRange(t *testing.T) {
	u, err := NewUniformContinuous("x", -5, 5)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		v := u.Sample(rng).(float64)
		assert.GreaterOrEqual(t, v, -5.0)
		assert.Less(t, v, 5.0)
	}
}

func TestUniformContinuousRejectsInvertedBounds(t *testing.T) {
	_, err := NewUniformContinuous("x", 5, -5)
	assert.Error(t, err)
}

func TestNormalContinuousEncodeIsIdentity(t *testing.T) {
	n, err := NewNormalContinuous("x", 0, 1)
	require.NoError(t, err)

	f, err := n.Encode(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
	assert.Equal(t, 2.5, n.Decode(2.5))
}

func TestNormalContinuousRejectsNonPositiveStdDev(t *testing.T) {
	_, err := NewNormalContinuous("x", 0, 0)
	assert.Error(t, err)
	_, err = NewNormalContinuous("x", 0, -1)
	assert.Error(t, err)
}
