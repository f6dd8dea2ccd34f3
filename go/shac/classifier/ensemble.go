package classifier

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// TreeEnsemble is the reference Classifier: a small bagged ensemble of
// shallow decision trees, predicting by majority vote. Deterministic
// given a seed; serializes via encoding/gob for the cls_<i>.bin
// checkpoint files.
type TreeEnsemble struct {
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	Trees           []*tree
	Meta            Metadata
}

// NewTreeEnsemble builds an untrained ensemble with the given shape.
// Sensible defaults (matching the house's Default*Config helpers,
// e.g. go/neuro's training configs) are used when a value is <= 0.
func NewTreeEnsemble(numTrees, maxDepth int) *TreeEnsemble {
	if numTrees <= 0 {
		numTrees = 25
	}
	if maxDepth <= 0 {
		maxDepth = 4
	}
	return &TreeEnsemble{
		NumTrees:        numTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
	}
}

// Fit trains NumTrees trees, each on an independent bootstrap sample of
// X/y with a random feature subset per split, using a *rand.Rand seeded
// deterministically from seed so repeated calls with the same data and
// seed produce byte-identical trees.
func (e *TreeEnsemble) Fit(X [][]float64, y []bool, seed int64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("classifier: X and y must be equal-length and non-empty")
	}
	rng := rand.New(rand.NewSource(seed))
	numFeatures := featureSubsetSize(len(X[0]))

	cfg := treeBuildConfig{
		maxDepth:        e.MaxDepth,
		minSamplesSplit: e.MinSamplesSplit,
		numFeatures:     numFeatures,
	}

	e.Trees = make([]*tree, e.NumTrees)
	for i := 0; i < e.NumTrees; i++ {
		idx := bootstrapSample(len(X), rng)
		e.Trees[i] = buildTree(X, y, idx, cfg, rng)
	}
	e.Meta = Metadata{Version: e.Meta.Version + 1, TrainingSize: len(X)}
	return nil
}

// featureSubsetSize follows the usual sqrt(arity) heuristic for
// classification forests, floored at 1.
func featureSubsetSize(arity int) int {
	n := 1
	for n*n < arity {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Predict returns the ensemble's majority vote per row of X.
func (e *TreeEnsemble) Predict(X [][]float64) []bool {
	out := make([]bool, len(X))
	for i, x := range X {
		out[i] = e.predictOne(x)
	}
	return out
}

func (e *TreeEnsemble) predictOne(x []float64) bool {
	votes := make([]float64, len(e.Trees))
	for i, t := range e.Trees {
		if t.predict(x) {
			votes[i] = 1
		}
	}
	// gonum/floats.Sum for the vote tally, matching the house's
	// preference for gonum reductions over hand-rolled loops
	// (go/neuro/utils/tensor.go).
	return floats.Sum(votes) >= float64(len(votes))/2
}

// PredictProba returns the fraction of trees voting "accept" for the
// single row x.
func (e *TreeEnsemble) PredictProba(x []float64) float64 {
	votes := make([]float64, len(e.Trees))
	for i, t := range e.Trees {
		if t.predict(x) {
			votes[i] = 1
		}
	}
	return floats.Sum(votes) / float64(len(votes))
}

// Metadata implements Classifier.
func (e *TreeEnsemble) Metadata() Metadata { return e.Meta }

// SetValidationScore records a held-out accuracy figure on the
// classifier's metadata, called by TrainWithPolicy after cross-validation.
func (e *TreeEnsemble) SetValidationScore(score float64) {
	e.Meta.ValidationScore = &score
}

// Serialize gob-encodes the ensemble for a cls_<i>.bin checkpoint file.
func (e *TreeEnsemble) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("classifier: serializing tree ensemble: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeTreeEnsemble is the inverse of Serialize.
func DeserializeTreeEnsemble(data []byte) (*TreeEnsemble, error) {
	var e TreeEnsemble
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return nil, fmt.Errorf("classifier: deserializing tree ensemble: %w", err)
	}
	return &e, nil
}
