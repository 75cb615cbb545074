package telemetry

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Sampler draws uniformly distributed readings from a range.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand // nil means the global, concurrency-safe source
}

// NewSampler returns a Sampler backed by src, or by the runtime's
// entropy-seeded source when src is nil.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		return &Sampler{}
	}
	return &Sampler{rnd: rand.New(src)}
}

// Sample returns a value in [min, max] rounded to decimals fractional digits.
// Callers guarantee min <= max.
func (s *Sampler) Sample(min, max float64, decimals int) float64 {
	v := min + s.float64()*(max-min)
	v = round(v, decimals)

	// rounding may step just outside an interval whose bounds carry more digits
	return math.Min(math.Max(v, min), max)
}

// FakeLevel is Sample under the name the history recorder exposes.
func (s *Sampler) FakeLevel(min, max float64, decimals int) float64 {
	return s.Sample(min, max, decimals)
}

func (s *Sampler) float64() float64 {
	if s.rnd == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

func round(v float64, decimals int) float64 {
	if decimals < 0 {
		decimals = 0
	}
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
