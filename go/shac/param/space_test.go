package param

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSpace(t *testing.T) *Space {
	t.Helper()
	x, err := NewUniformContinuous("x", -5, 5)
	require.NoError(t, err)
	y, err := NewUniformContinuous("y", -2, 2)
	require.NoError(t, err)
	v, err := NewDiscrete("v", []any{int64(0), int64(1), int64(2), int64(3), int64(4)})
	require.NoError(t, err)
	space, err := NewSpace(x, y, v)
	require.NoError(t, err)
	return space
}

func TestSpaceRejectsDuplicateNames(t *testing.T) {
	x1, _ := NewUniformContinuous("x", 0, 1)
	x2, _ := NewUniformContinuous("x", 0, 1)
	_, err := NewSpace(x1, x2)
	assert.Error(t, err)
}

func TestSpaceRoundTripEncodeDecode(t *testing.T) {
	space := buildTestSpace(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		s := space.Sample(rng)
		vec, err := space.Encode(s)
		require.NoError(t, err)
		require.Len(t, vec, 3)

		decoded, err := space.Decode(vec)
		require.NoError(t, err)
		assert.Equal(t, s["x"], decoded["x"])
		assert.Equal(t, s["y"], decoded["y"])
		assert.Equal(t, s["v"], decoded["v"])
	}
}

func TestSpaceConforms(t *testing.T) {
	space := buildTestSpace(t)
	rng := rand.New(rand.NewSource(1))
	s := space.Sample(rng)
	assert.True(t, space.Conforms(s))

	delete(s, "x")
	assert.False(t, space.Conforms(s))
}

func TestSpaceJSONRoundTrip(t *testing.T) {
	space := buildTestSpace(t)

	data, err := json.Marshal(space)
	require.NoError(t, err)

	var restored Space
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, space.Names(), restored.Names())

	rng := rand.New(rand.NewSource(3))
	s := space.Sample(rng)
	vec, err := space.Encode(s)
	require.NoError(t, err)

	vec2, err := restored.Encode(s)
	require.NoError(t, err)
	assert.Equal(t, vec, vec2)
}

func TestSpaceEncodeMissingValue(t *testing.T) {
	space := buildTestSpace(t)
	_, err := space.Encode(Sample{"x": 1.0, "y": 1.0})
	assert.Error(t, err)
}
