// Package rng holds the single seeded random source used by simulation systems.
package rng

import (
	"fmt"
	"math/rand/v2"
)

// SimRng wraps a PCG stream so its state can be persisted and restored.
type SimRng struct {
	seed uint64
	src  *rand.PCG
	r    *rand.Rand
}

func New(seed uint64) *SimRng {
	s := &SimRng{}
	s.Reseed(seed)
	return s
}

func (s *SimRng) Reseed(seed uint64) {
	s.seed = seed
	s.src = rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)
	s.r = rand.New(s.src)
}

func (s *SimRng) Seed() uint64 { return s.seed }

func (s *SimRng) Float32() float32 { return s.r.Float32() }
func (s *SimRng) Float64() float64 { return s.r.Float64() }
func (s *SimRng) Uint64() uint64   { return s.r.Uint64() }

// IntN returns a value in [0,n). n <= 0 yields 0.
func (s *SimRng) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// Range returns a float in [lo,hi).
func (s *SimRng) Range(lo, hi float32) float32 {
	return lo + s.r.Float32()*(hi-lo)
}

// Chance is true with probability p.
func (s *SimRng) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return s.r.Float64() < p
}

// MarshalBinary captures seed and stream position.
func (s *SimRng) MarshalBinary() ([]byte, error) {
	st, err := s.src.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(st))
	for i := 0; i < 8; i++ {
		out[i] = byte(s.seed >> (8 * i))
	}
	return append(out, st...), nil
}

func (s *SimRng) UnmarshalBinary(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("rng state too short: %d bytes", len(b))
	}
	var seed uint64
	for i := 0; i < 8; i++ {
		seed |= uint64(b[i]) << (8 * i)
	}
	s.Reseed(seed)
	if err := s.src.UnmarshalBinary(b[8:]); err != nil {
		return fmt.Errorf("rng state: %w", err)
	}
	return nil
}
