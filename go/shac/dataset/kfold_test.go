package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFoldCoversAllIndicesExactlyOnceAsVal(t *testing.T) {
	labels := make([]bool, 20)
	for i := range labels {
		labels[i] = i%2 == 0
	}
	folds, err := KFold(5, 0, labels)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := map[int]int{}
	for _, f := range folds {
		for _, idx := range f.Val {
			seen[idx]++
		}
		assert.Equal(t, len(labels), len(f.Train)+len(f.Val))
	}
	assert.Len(t, seen, len(labels))
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestKFoldIsDeterministicForFixedSeed(t *testing.T) {
	labels := make([]bool, 30)
	for i := range labels {
		labels[i] = i%3 == 0
	}
	a, err := KFold(5, 42, labels)
	require.NoError(t, err)
	b, err := KFold(5, 42, labels)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKFoldRejectsTooFewSamples(t *testing.T) {
	_, err := KFold(5, 0, []bool{true, false})
	assert.Error(t, err)
}

func TestFoldHasBothClasses(t *testing.T) {
	labels := []bool{true, true, false, false}
	f := Fold{Train: []int{0, 1}}
	assert.False(t, FoldHasBothClasses(labels, f))

	f2 := Fold{Train: []int{0, 2}}
	assert.True(t, FoldHasBothClasses(labels, f2))
}
