package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

func buildSpace(t *testing.T) *param.Space {
	t.Helper()
	x, err := param.NewUniformContinuous("x", -5, 5)
	require.NoError(t, err)
	y, err := param.NewUniformContinuous("y", -2, 2)
	require.NoError(t, err)
	space, err := param.NewSpace(x, y)
	require.NoError(t, err)
	return space
}

// alwaysReject is a stub Classifier that labels every row "reject", used
// where a test needs a cascade that accepts nothing.
type alwaysReject struct{}

func (alwaysReject) Fit([][]float64, []bool, int64) error   { return nil }
func (alwaysReject) Predict(X [][]float64) []bool           { return make([]bool, len(X)) }
func (alwaysReject) Metadata() classifier.Metadata          { return classifier.Metadata{} }
func (alwaysReject) Serialize() ([]byte, error)             { return nil, nil }

func TestGenerateProducesExactlyN(t *testing.T) {
	space := buildSpace(t)
	cascade := NewCascade()
	g, err := New(space, cascade, Config{Workers: 4, MaxAttemptsPerSlot: 1000, EngineSeed: 1})
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), 0, 23, -1)
	require.NoError(t, err)
	assert.Len(t, result.Samples, 23)
}

func TestGenerateEmptyCascadeIsUniform(t *testing.T) {
	space := buildSpace(t)
	cascade := NewCascade()
	g, err := New(space, cascade, Config{Workers: 2, MaxAttemptsPerSlot: 100, EngineSeed: 5})
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), 0, 10, -1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Attempts)
}

func TestGenerateDeterministicForFixedSeed(t *testing.T) {
	space := buildSpace(t)
	cascade := NewCascade()

	g1, err := New(space, cascade, Config{Workers: 3, MaxAttemptsPerSlot: 1000, EngineSeed: 42})
	require.NoError(t, err)
	r1, err := g1.Generate(context.Background(), 2, 15, -1)
	require.NoError(t, err)

	g2, err := New(space, cascade, Config{Workers: 3, MaxAttemptsPerSlot: 1000, EngineSeed: 42})
	require.NoError(t, err)
	r2, err := g2.Generate(context.Background(), 2, 15, -1)
	require.NoError(t, err)

	assert.Equal(t, r1.Samples, r2.Samples)
}

func TestGenerateExhaustsWhenCascadeRejectsEverything(t *testing.T) {
	space := buildSpace(t)
	cascade := NewCascade()
	cascade.Append(alwaysReject{})

	g, err := New(space, cascade, Config{Workers: 2, MaxAttemptsPerSlot: 5, EngineSeed: 1})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), 0, 4, -1)
	require.Error(t, err)
	assert.True(t, shacerr.Is(err, shacerr.GeneratorExhausted))
}

func TestGenerateRespectsCancellation(t *testing.T) {
	space := buildSpace(t)
	cascade := NewCascade()
	cascade.Append(alwaysReject{})

	g, err := New(space, cascade, Config{Workers: 1, MaxAttemptsPerSlot: 10_000_000, EngineSeed: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, 0, 1, -1)
	require.Error(t, err)
	assert.True(t, shacerr.Is(err, shacerr.Cancelled))
}
