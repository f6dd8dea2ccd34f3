package generator

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// Config configures one Generator.
type Config struct {
	// Workers is the size of the worker pool used to produce one batch.
	Workers int
	// MaxAttemptsPerSlot is the hard cap on rejection-sampling attempts
	// for a single accepted-sample slot before GeneratorExhausted.
	MaxAttemptsPerSlot int
	// EngineSeed seeds the per-slot deterministic PRNG derivation.
	EngineSeed int64
	// CacheSize bounds the classifier-acceptance memoization cache;
	// 0 disables memoization.
	CacheSize int
}

// cacheKey memoizes "does this encoded vector pass the first watermark
// classifiers". The cache belongs to the Generator and is shared by all
// of its Generate calls.
type cacheKey struct {
	watermark int
	hash      uint64
}

// Generator is the parallel rejection sampler composing the current
// classifier cascade.
type Generator struct {
	space   *param.Space
	cascade *Cascade
	cfg     Config
	cache   *lru.Cache[cacheKey, bool]
}

// New builds a Generator over space, reading the cascade live on every
// Generate call (so newly appended classifiers are visible to the next
// epoch without reconstructing the Generator).
func New(space *param.Space, cascade *Cascade, cfg Config) (*Generator, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	g := &Generator{space: space, cascade: cascade, cfg: cfg}
	if cfg.CacheSize > 0 {
		c, err := lru.New[cacheKey, bool](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		g.cache = c
	}
	return g, nil
}

// Result is the outcome of one Generate call.
type Result struct {
	// Samples is ordered by (worker_id, slot_index), not completion order.
	Samples []param.Sample
	// Attempts is the total number of raw draws across all slots; the
	// engine logs it beside the expected attempts-per-accept.
	Attempts int64
}

// Generate produces n accepted samples for the given epoch, using the
// first maxClassifiers entries of the cascade (maxClassifiers < 0 means
// "use the full cascade").
func (g *Generator) Generate(ctx context.Context, epoch, n, maxClassifiers int) (Result, error) {
	if n <= 0 {
		return Result{}, nil
	}
	workers := g.cfg.Workers
	if workers > n {
		workers = n
	}
	snapshot := g.cascade.Snapshot(maxClassifiers)

	base, rem := n/workers, n%workers

	type workerOutcome struct {
		samples  []param.Sample
		attempts int64
		err      error
	}
	outcomes := make([]workerOutcome, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		count := base
		if w < rem {
			count++
		}
		wg.Add(1)
		go func(workerID, count int) {
			defer wg.Done()
			samples := make([]param.Sample, 0, count)
			var attempts int64
			for slot := 0; slot < count; slot++ {
				seed := deriveSeed(g.cfg.EngineSeed, epoch, workerID, slot)
				rng := rand.New(rand.NewSource(seed))
				sample, a, err := g.drawOne(ctx, rng, snapshot)
				attempts += a
				if err != nil {
					outcomes[workerID] = workerOutcome{attempts: attempts, err: err}
					return
				}
				samples = append(samples, sample)
			}
			outcomes[workerID] = workerOutcome{samples: samples, attempts: attempts}
		}(w, count)
	}
	wg.Wait()

	var result Result
	for _, o := range outcomes {
		if o.err != nil {
			return Result{}, o.err
		}
		result.Samples = append(result.Samples, o.samples...)
		result.Attempts += o.attempts
	}
	return result, nil
}

func (g *Generator) drawOne(ctx context.Context, rng *rand.Rand, snapshot []classifier.Classifier) (param.Sample, int64, error) {
	maxAttempts := g.cfg.MaxAttemptsPerSlot
	if maxAttempts <= 0 {
		maxAttempts = 1_000_000
	}
	for attempt := int64(1); attempt <= int64(maxAttempts); attempt++ {
		if attempt%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, attempt, shacerr.Wrap(shacerr.Cancelled, "generation cancelled", ctx.Err())
			default:
			}
		}
		sample := g.space.Sample(rng)
		vec, err := g.space.Encode(sample)
		if err != nil {
			return nil, attempt, err
		}
		if g.accepts(vec, snapshot) {
			return sample, attempt, nil
		}
	}
	return nil, int64(maxAttempts), shacerr.New(shacerr.GeneratorExhausted, "per-slot attempt cap exceeded")
}

func (g *Generator) accepts(vec []float64, snapshot []classifier.Classifier) bool {
	if g.cache == nil {
		return Accepts(snapshot, vec)
	}
	key := cacheKey{watermark: len(snapshot), hash: hashVec(vec)}
	if v, ok := g.cache.Get(key); ok {
		return v
	}
	result := Accepts(snapshot, vec)
	g.cache.Add(key, result)
	return result
}

func hashVec(vec []float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range vec {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v*1e9)))
		h.Write(buf[:])
	}
	return h.Sum64()
}
