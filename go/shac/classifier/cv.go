package classifier

import (
	"fmt"

	"github.com/muchq/shac/go/shac/dataset"
)

// TrainResult reports the outcome of TrainWithPolicy: whether a
// classifier was produced at all, and its cross-validation score when
// computed.
type TrainResult struct {
	Classifier Classifier
	Trained    bool
	// CVScore is the mean fold validation accuracy, set only when
	// cross-validation ran (skipCVChecks == false).
	CVScore *float64
}

// TrainWithPolicy implements spec.md section 4.3's training policy:
//
//   - if skipCVChecks, fit once on the whole batch;
//   - otherwise, run 5-fold cross-validation and abort (no classifier)
//     if any fold's training split lacks both classes;
//   - if the batch itself has fewer than 2 samples of either label,
//     skip training entirely.
//
// factory is called once per fold plus once for the final fit, so every
// classifier instance is trained from scratch (no state leaks across
// folds).
func TrainWithPolicy(factory Factory, X [][]float64, y []bool, seed int64, skipCVChecks bool) (TrainResult, error) {
	trueCount, falseCount := 0, 0
	for _, label := range y {
		if label {
			trueCount++
		} else {
			falseCount++
		}
	}
	if trueCount < 2 || falseCount < 2 {
		return TrainResult{}, nil
	}

	if skipCVChecks {
		cls := factory()
		if err := cls.Fit(X, y, seed); err != nil {
			return TrainResult{}, fmt.Errorf("classifier: fit failed: %w", err)
		}
		return TrainResult{Classifier: cls, Trained: true}, nil
	}

	folds, err := dataset.KFold(5, seed, y)
	if err != nil {
		// Too few samples to build 5 folds (batch smaller than k): this is
		// the same "untrainable this epoch" outcome as a fold lacking both
		// classes below, not a fatal error.
		return TrainResult{}, nil
	}

	var accuracies []float64
	for _, f := range folds {
		if !dataset.FoldHasBothClasses(y, f) {
			return TrainResult{}, nil // ClassifierUntrainable: engine logs and skips this epoch
		}
		trainX, trainY := subset(X, y, f.Train)
		valX, valY := subset(X, y, f.Val)

		cls := factory()
		if err := cls.Fit(trainX, trainY, seed); err != nil {
			return TrainResult{}, fmt.Errorf("classifier: cv fold fit failed: %w", err)
		}
		accuracies = append(accuracies, accuracy(cls.Predict(valX), valY))
	}

	avg := mean(accuracies)
	cls := factory()
	if err := cls.Fit(X, y, seed); err != nil {
		return TrainResult{}, fmt.Errorf("classifier: final fit failed: %w", err)
	}
	if te, ok := cls.(*TreeEnsemble); ok {
		te.SetValidationScore(avg)
	}
	return TrainResult{Classifier: cls, Trained: true, CVScore: &avg}, nil
}

func subset(X [][]float64, y []bool, idx []int) ([][]float64, []bool) {
	outX := make([][]float64, len(idx))
	outY := make([]bool, len(idx))
	for i, v := range idx {
		outX[i] = X[v]
		outY[i] = y[v]
	}
	return outX, outY
}

func accuracy(pred, actual []bool) float64 {
	if len(pred) == 0 {
		return 0
	}
	correct := 0
	for i := range pred {
		if pred[i] == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
