package textproc

import (
	"math"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// ErrDimensionMismatch reports two vectors built from different vocabularies.
// This is a caller contract violation, not a recoverable condition.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Calculator scores numeric vectors and memoizes whole-string lexical
// similarity. The memo cache is unbounded for the life of the process;
// callers may clear it between independent workloads.
type Calculator struct {
	proc  *Processor
	cache *gocache.Cache
}

func NewCalculator(proc *Processor) *Calculator {
	return &Calculator{
		proc:  proc,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Cosine computes the cosine similarity of two equal-length vectors. A zero
// vector on either side yields 0.
func (c *Calculator) Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrDimensionMismatch, "len %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TextSimilarity is the memoized lexical similarity. The cache key is
// order-independent, so TextSimilarity(a, b) == TextSimilarity(b, a) holds by
// construction, cache hits included.
func (c *Calculator) TextSimilarity(a, b string) float64 {
	if b < a {
		a, b = b, a
	}
	key := a + "\x1f" + b
	if v, ok := c.cache.Get(key); ok {
		return v.(float64)
	}
	sim := c.proc.Similarity(a, b)
	c.cache.Set(key, sim, gocache.NoExpiration)
	return sim
}

func (c *Calculator) CacheSize() int {
	return c.cache.ItemCount()
}

func (c *Calculator) ClearCache() {
	c.cache.Flush()
}
