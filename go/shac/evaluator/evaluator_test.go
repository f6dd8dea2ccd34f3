package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

func samples(n int) []param.Sample {
	out := make([]param.Sample, n)
	for i := range out {
		out[i] = param.Sample{"x": float64(i)}
	}
	return out
}

func TestEvaluatePreservesOrder(t *testing.T) {
	e := New(Config{NumBatches: 4})
	fn := func(_ context.Context, _ int, s param.Sample) (float64, error) {
		return s["x"].(float64) * 2, nil
	}
	scores, err := e.Evaluate(context.Background(), samples(10), fn)
	require.NoError(t, err)
	for i, s := range scores {
		assert.Equal(t, float64(i)*2, s)
	}
}

func TestEvaluatePropagatesFailureByDefault(t *testing.T) {
	e := New(Config{NumBatches: 4})
	fn := func(_ context.Context, _ int, s param.Sample) (float64, error) {
		if s["x"].(float64) == 3 {
			return 0, errors.New("boom")
		}
		return 1, nil
	}
	_, err := e.Evaluate(context.Background(), samples(10), fn)
	require.Error(t, err)
	assert.True(t, shacerr.Is(err, shacerr.EvaluationFailed))
}

func TestEvaluateScoreOnFailureSentinel(t *testing.T) {
	sentinel := -1.0
	e := New(Config{NumBatches: 4, ScoreOnFailure: &sentinel})
	fn := func(_ context.Context, _ int, s param.Sample) (float64, error) {
		if s["x"].(float64) == 3 {
			return 0, errors.New("boom")
		}
		return 1, nil
	}
	scores, err := e.Evaluate(context.Background(), samples(5), fn)
	require.NoError(t, err)
	assert.Equal(t, sentinel, scores[3])
}

func TestEvaluateTimeout(t *testing.T) {
	e := New(Config{NumBatches: 2, Timeout: 10 * time.Millisecond})
	fn := func(ctx context.Context, _ int, _ param.Sample) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	_, err := e.Evaluate(context.Background(), samples(2), fn)
	require.Error(t, err)
	assert.True(t, shacerr.Is(err, shacerr.EvaluationTimeout))
}

func TestWorkersRespectsSampleCount(t *testing.T) {
	assert.LessOrEqual(t, Workers(1), 1)
}
