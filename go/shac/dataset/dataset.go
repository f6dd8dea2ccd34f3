// Package dataset implements the SHAC append-only sample/score store: the
// epoch acceptance threshold, stratified k-fold partitioning, and the
// dataset.csv persistence view. The parameters.json schema half of a
// checkpoint is written by package param's Space JSON methods.
package dataset

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/muchq/shac/go/shac/param"
)

// Objective selects whether a lower or higher score is preferred.
type Objective string

const (
	ObjectiveMin Objective = "min"
	ObjectiveMax Objective = "max"
)

// Record pairs one decoded Sample with its evaluated score.
type Record struct {
	Sample param.Sample
	Score  float64
}

// Dataset is the ordered, append-only list of (sample, score) pairs
// accumulated across all epochs. It is mutated exclusively by the
// engine's control thread; see package engine.
type Dataset struct {
	mu      sync.Mutex
	space   *param.Space
	records []Record
}

// New creates an empty Dataset bound to space. Every appended sample is
// validated against this schema.
func New(space *param.Space) *Dataset {
	return &Dataset{space: space}
}

// Space returns the parameter space this dataset's rows conform to.
func (d *Dataset) Space() *param.Space { return d.space }

// Append records one (sample, score) pair. O(1). Returns an error if
// sample does not conform to the dataset's parameter space.
func (d *Dataset) Append(sample param.Sample, score float64) error {
	if !d.space.Conforms(sample) {
		return fmt.Errorf("dataset: sample does not conform to parameter space schema")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, Record{Sample: sample.Clone(), Score: score})
	return nil
}

// Size is the number of records stored.
func (d *Dataset) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Snapshot returns a defensive copy of all records in append order.
func (d *Dataset) Snapshot() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Scores returns the score column of the full dataset, in append order.
func (d *Dataset) Scores() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]float64, len(d.records))
	for i, r := range d.records {
		out[i] = r.Score
	}
	return out
}

// ScoreStats reports the mean, standard deviation, min, and max of all
// stored scores.
func (d *Dataset) ScoreStats() (mean, stddev, min, max float64) {
	scores := d.Scores()
	if len(scores) == 0 {
		return 0, 0, 0, 0
	}
	mean, stddev = stat.MeanStdDev(scores, nil)
	min, max = scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return mean, stddev, min, max
}

// Threshold computes the acceptance cutoff over the full dataset's
// scores, per spec: for objective=min, the p-quantile (accept iff
// score <= threshold); for objective=max, the (1-p)-quantile (accept
// iff score >= threshold).
func (d *Dataset) Threshold(p float64, objective Objective) (float64, error) {
	return Threshold(d.Scores(), p, objective)
}

// Threshold computes the acceptance cutoff over an arbitrary slice of
// scores (used by the engine to compute the epoch threshold over the
// most recent batch only, not the accumulated dataset).
func Threshold(scores []float64, p float64, objective Objective) (float64, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("dataset: cannot compute threshold over zero scores")
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("dataset: p must be in [0,1], got %v", p)
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	switch objective {
	case ObjectiveMin:
		return stat.Quantile(p, stat.Empirical, sorted, nil), nil
	case ObjectiveMax:
		return stat.Quantile(1-p, stat.Empirical, sorted, nil), nil
	default:
		return 0, fmt.Errorf("dataset: unknown objective %q", objective)
	}
}

// Labels returns one bool per score: true iff the score is accepted
// under the given threshold and objective.
func Labels(scores []float64, threshold float64, objective Objective) []bool {
	out := make([]bool, len(scores))
	for i, s := range scores {
		switch objective {
		case ObjectiveMax:
			out[i] = s >= threshold
		default:
			out[i] = s <= threshold
		}
	}
	return out
}
