package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/dataset"
	"github.com/muchq/shac/go/shac/param"
)

func buildFixture(t *testing.T) (*param.Space, *dataset.Dataset, []classifier.Classifier) {
	t.Helper()
	x, err := param.NewUniformContinuous("x", 0, 1)
	require.NoError(t, err)
	space, err := param.NewSpace(x)
	require.NoError(t, err)

	ds := dataset.New(space)
	require.NoError(t, ds.Append(param.Sample{"x": 0.1}, 1.0))
	require.NoError(t, ds.Append(param.Sample{"x": 0.9}, 2.0))

	e := classifier.NewTreeEnsemble(5, 2)
	require.NoError(t, e.Fit([][]float64{{0.1}, {0.9}}, []bool{false, true}, 1))

	return space, ds, []classifier.Classifier{e}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	space, ds, cascade := buildFixture(t)

	meta := Meta{RunID: "run-1", Epoch: 3, Objective: "min", TotalBudget: 100, NumBatches: 10, MaxClassifiers: 18, Seed: 42}
	require.NoError(t, Save(dir, meta, space, ds, cascade))

	assert.True(t, Exists(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.Meta.RunID)
	assert.Equal(t, 3, loaded.Meta.Epoch)
	assert.Equal(t, EngineVersion, loaded.Meta.EngineVersion)
	assert.Equal(t, ds.Size(), loaded.Dataset.Size())
	assert.Len(t, loaded.Cascade, 1)
}

func TestLoadFailsOnMissingMeta(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSaveIsAtomicAcrossRepeatedCalls(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shac")
	space, ds, cascade := buildFixture(t)

	meta := Meta{RunID: "run-1", Epoch: 1, Objective: "min", TotalBudget: 10, NumBatches: 10}
	require.NoError(t, Save(dir, meta, space, ds, cascade))

	meta.Epoch = 2
	require.NoError(t, ds.Append(param.Sample{"x": 0.5}, 3.0))
	require.NoError(t, Save(dir, meta, space, ds, cascade))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Meta.Epoch)
	assert.Equal(t, 3, loaded.Dataset.Size())
}
