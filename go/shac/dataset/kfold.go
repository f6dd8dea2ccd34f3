package dataset

import (
	"fmt"
	"math/rand"
)

// Fold is one train/validation split: disjoint index sets into the
// original sample slice passed to KFold.
type Fold struct {
	Train []int
	Val   []int
}

// KFold partitions len(labels) indices into k folds, stratified on
// labels: each class's indices are independently shuffled (seeded) and
// distributed round-robin across the k folds, so every fold's class
// balance tracks the overall class balance as closely as integer
// division allows.
func KFold(k int, seed int64, labels []bool) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("dataset: k must be >= 2, got %d", k)
	}
	if len(labels) < k {
		return nil, fmt.Errorf("dataset: need at least k=%d samples, got %d", k, len(labels))
	}

	var trueIdx, falseIdx []int
	for i, l := range labels {
		if l {
			trueIdx = append(trueIdx, i)
		} else {
			falseIdx = append(falseIdx, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(trueIdx), func(i, j int) { trueIdx[i], trueIdx[j] = trueIdx[j], trueIdx[i] })
	rng.Shuffle(len(falseIdx), func(i, j int) { falseIdx[i], falseIdx[j] = falseIdx[j], falseIdx[i] })

	buckets := make([][]int, k)
	distribute := func(idx []int) {
		for i, v := range idx {
			buckets[i%k] = append(buckets[i%k], v)
		}
	}
	distribute(trueIdx)
	distribute(falseIdx)

	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		val := buckets[i]
		valSet := make(map[int]bool, len(val))
		for _, v := range val {
			valSet[v] = true
		}
		var train []int
		for idx := range labels {
			if !valSet[idx] {
				train = append(train, idx)
			}
		}
		folds[i] = Fold{Train: train, Val: val}
	}
	return folds, nil
}

// FoldHasBothClasses reports whether both labels appear among the
// training indices of fold f, the condition the classifier training
// policy checks before attempting to fit on a fold.
func FoldHasBothClasses(labels []bool, f Fold) bool {
	var sawTrue, sawFalse bool
	for _, idx := range f.Train {
		if labels[idx] {
			sawTrue = true
		} else {
			sawFalse = true
		}
		if sawTrue && sawFalse {
			return true
		}
	}
	return false
}
