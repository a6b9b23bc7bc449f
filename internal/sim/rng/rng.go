// Package rng is the world's random source: a 32-bit linear congruential
// generator whose whole state is its seed, so snapshots can store it and a
// reload continues the exact same sequence.
package rng

// Source is not safe for concurrent use; the world is single-threaded.
type Source struct {
	seed uint32
}

func New(seed uint32) *Source {
	return &Source{seed: seed}
}

// Seed returns the current state.
func (s *Source) Seed() uint32 { return s.seed }

// SetSeed replaces the current state.
func (s *Source) SetSeed(seed uint32) { s.seed = seed }

// Next advances the state and returns a value in [0, 65535].
func (s *Source) Next() uint16 {
	s.seed = s.seed*1103515245 + 12345
	return uint16(s.seed >> 16)
}

// Intn returns Next() % n. n must be positive.
func (s *Source) Intn(n int) int {
	return int(s.Next()) % n
}
