// Package generator provides the random sources used to roll dice.
package generator

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Generator produces uniformly distributed die faces. It is safe for
// concurrent use.
type Generator struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	seed int64
}

// New returns a Generator seeded from crypto/rand, falling back to the current
// time when the system source is unavailable.
func New() *Generator {
	seed, err := NewSeed()
	if err != nil {
		seed = time.Now().UnixNano()
	}
	return NewSeeded(seed)
}

// NewSeeded returns a deterministic Generator: the same seed always yields the
// same sequence of faces.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), seed: seed}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Roll returns a uniform integer in [1, sides]. Sides below 1 are treated as 1.
func (g *Generator) Roll(sides int) int {
	if sides <= 1 {
		return 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(sides) + 1
}

// Split derives n independent generators whose seeds come from g, so parallel
// work stays reproducible for a seeded parent.
func (g *Generator) Split(n int) []*Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Generator, n)
	for i := range out {
		out[i] = NewSeeded(g.rnd.Int63())
	}
	return out
}
