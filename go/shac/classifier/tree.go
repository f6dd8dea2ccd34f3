package classifier

import (
	"math/rand"
)

// treeNode is one node of a small CART-style binary classification tree.
// Leaf nodes have Feature == -1.
type treeNode struct {
	Feature     int
	Threshold   float64
	Leaf        bool
	LeafLabel   bool
	Left, Right *treeNode
}

// tree is a single decision tree: exported fields so it gob-encodes
// directly as part of TreeEnsemble's serialization.
type tree struct {
	Root *treeNode
}

type treeBuildConfig struct {
	maxDepth        int
	minSamplesSplit int
	numFeatures     int // size of the random feature subset considered per split; 0 = all
}

// buildTree grows a tree greedily by Gini-impurity reduction, bagging
// rows via idx (already a bootstrap sample) and, at every split,
// considering a seeded random subset of features when numFeatures > 0.
func buildTree(X [][]float64, y []bool, idx []int, cfg treeBuildConfig, rng *rand.Rand) *tree {
	return &tree{Root: buildNode(X, y, idx, 0, cfg, rng)}
}

func buildNode(X [][]float64, y []bool, idx []int, depth int, cfg treeBuildConfig, rng *rand.Rand) *treeNode {
	majority, pure := majorityLabel(y, idx)
	if pure || depth >= cfg.maxDepth || len(idx) < cfg.minSamplesSplit {
		return &treeNode{Leaf: true, LeafLabel: majority, Feature: -1}
	}

	featureIdx := candidateFeatures(len(X[idx[0]]), cfg.numFeatures, rng)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	for _, f := range featureIdx {
		threshold, gain := bestSplitForFeature(X, y, idx, f)
		if gain > bestGain {
			bestGain, bestFeature, bestThreshold = gain, f, threshold
		}
	}

	if bestFeature == -1 || bestGain <= 0 {
		return &treeNode{Leaf: true, LeafLabel: majority, Feature: -1}
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return &treeNode{Leaf: true, LeafLabel: majority, Feature: -1}
	}

	return &treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      buildNode(X, y, leftIdx, depth+1, cfg, rng),
		Right:     buildNode(X, y, rightIdx, depth+1, cfg, rng),
	}
}

func candidateFeatures(total, want int, rng *rand.Rand) []int {
	if want <= 0 || want >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(total)
	return perm[:want]
}

func majorityLabel(y []bool, idx []int) (majority bool, pure bool) {
	trueCount := 0
	for _, i := range idx {
		if y[i] {
			trueCount++
		}
	}
	majority = trueCount*2 >= len(idx)
	pure = trueCount == 0 || trueCount == len(idx)
	return majority, pure
}

// bestSplitForFeature scans candidate thresholds (midpoints between
// consecutive sorted distinct values of this feature among idx) and
// returns the one minimizing weighted Gini impurity, reported as the
// impurity-reduction gain versus the parent node.
func bestSplitForFeature(X [][]float64, y []bool, idx []int, feature int) (threshold float64, gain float64) {
	type pair struct {
		v float64
		l bool
	}
	pairs := make([]pair, len(idx))
	for i, row := range idx {
		pairs[i] = pair{v: X[row][feature], l: y[row]}
	}
	sortPairs(pairs)

	parentGini := giniOf(labelsOf(pairs))
	totalTrue, totalCount := countTrue(pairs), len(pairs)

	bestGain := 0.0
	bestThreshold := 0.0
	leftTrue, leftCount := 0, 0
	for i := 0; i < len(pairs)-1; i++ {
		if pairs[i].l {
			leftTrue++
		}
		leftCount++
		if pairs[i].v == pairs[i+1].v {
			continue
		}
		rightTrue := totalTrue - leftTrue
		rightCount := totalCount - leftCount
		if leftCount == 0 || rightCount == 0 {
			continue
		}
		leftGini := giniFromCounts(leftTrue, leftCount)
		rightGini := giniFromCounts(rightTrue, rightCount)
		weighted := (float64(leftCount)/float64(totalCount))*leftGini + (float64(rightCount)/float64(totalCount))*rightGini
		g := parentGini - weighted
		if g > bestGain {
			bestGain = g
			bestThreshold = (pairs[i].v + pairs[i+1].v) / 2
		}
	}
	return bestThreshold, bestGain
}

func sortPairs(pairs []struct {
	v float64
	l bool
}) {
	// insertion sort is fine: per-split batches are small (one epoch's worth)
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j-1].v > pairs[j].v; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}
}

func labelsOf(pairs []struct {
	v float64
	l bool
}) []bool {
	out := make([]bool, len(pairs))
	for i, p := range pairs {
		out[i] = p.l
	}
	return out
}

func countTrue(pairs []struct {
	v float64
	l bool
}) int {
	c := 0
	for _, p := range pairs {
		if p.l {
			c++
		}
	}
	return c
}

func giniOf(labels []bool) float64 {
	return giniFromCounts(countTrueBools(labels), len(labels))
}

func countTrueBools(labels []bool) int {
	c := 0
	for _, l := range labels {
		if l {
			c++
		}
	}
	return c
}

func giniFromCounts(trueCount, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(trueCount) / float64(total)
	return 1 - p*p - (1-p)*(1-p)
}

func (t *tree) predict(x []float64) bool {
	n := t.Root
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.LeafLabel
}

// bootstrapSample draws n row indices with replacement from [0, n),
// using rng, the standard bagging step for one ensemble member.
func bootstrapSample(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}
