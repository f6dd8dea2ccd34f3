// Package generator implements the SHAC rejection sampler: the parallel
// worker pool that draws raw samples from the parameter space and keeps
// only those every classifier in the current cascade labels "accept".
package generator

import (
	"sync"

	"github.com/muchq/shac/go/shac/classifier"
)

// Cascade is the append-only, concurrently-readable list of classifiers
// trained so far. Workers snapshot a length watermark at task
// submission time and never observe a classifier added after their
// snapshot, per spec.md section 5's shared-resource policy.
type Cascade struct {
	mu          sync.RWMutex
	classifiers []classifier.Classifier
}

// NewCascade returns an empty cascade.
func NewCascade() *Cascade {
	return &Cascade{}
}

// Append adds a trained classifier to the end of the cascade. Never
// mutates an existing entry.
func (c *Cascade) Append(cls classifier.Classifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classifiers = append(c.classifiers, cls)
}

// Len returns the current cascade length.
func (c *Cascade) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.classifiers)
}

// Snapshot returns the first n classifiers (or all of them, if n < 0 or
// n exceeds the cascade length) as a stable slice a worker can use for
// the duration of one generation task without racing future appends.
func (c *Cascade) Snapshot(n int) []classifier.Classifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n < 0 || n > len(c.classifiers) {
		n = len(c.classifiers)
	}
	out := make([]classifier.Classifier, n)
	copy(out, c.classifiers[:n])
	return out
}

// Accepts reports whether vec passes every classifier in snapshot (a
// conjunctive filter: reject as soon as one classifier rejects).
func Accepts(snapshot []classifier.Classifier, vec []float64) bool {
	row := [][]float64{vec}
	for _, cls := range snapshot {
		if !cls.Predict(row)[0] {
			return false
		}
	}
	return true
}
