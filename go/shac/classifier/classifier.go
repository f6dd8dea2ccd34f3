// Package classifier implements the SHAC Classifier contract: a binary
// predictor over encoded parameter vectors, trained on a labeled batch
// and serializable for the on-disk cascade checkpoint. The engine treats
// any type satisfying Classifier as opaque; TreeEnsemble is the reference
// implementation (a small bagged decision-tree ensemble), chosen for
// determinism given a seed and fast inference.
package classifier

// Classifier is the opaque capability the engine's cascade is built
// from: fit on a labeled set of encoded vectors, predict 0/1 labels for
// new vectors, and serialize/deserialize for checkpointing.
type Classifier interface {
	// Fit trains the classifier on X (rows of encoded parameter
	// vectors) against labels y, deterministically given seed.
	Fit(X [][]float64, y []bool, seed int64) error
	// Predict returns one label per row of X: true means "accept".
	Predict(X [][]float64) []bool
	// Metadata reports training provenance for the cascade checkpoint.
	Metadata() Metadata
	// Serialize encodes the trained classifier to bytes (cls_<i>.bin).
	Serialize() ([]byte, error)
}

// Metadata is the cascade bookkeeping the engine attaches to every
// classifier it trains.
type Metadata struct {
	Version         int      `json:"version"`
	TrainingSize    int      `json:"training_size"`
	ValidationScore *float64 `json:"validation_score,omitempty"`
}

// Factory constructs a fresh, untrained Classifier. TrainWithPolicy calls
// it once per cross-validation fold and once for the final fit, so every
// fold trains an independent instance.
type Factory func() Classifier
