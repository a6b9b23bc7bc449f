// Package pathing builds flood-fill distance maps over the hex grid and picks
// single steps along them.
package pathing

import "github.com/plomlompom/plomrogue-sub000/internal/sim/grid"

const (
	Blocked   uint16 = 65535
	Unreached uint16 = 65534
	Target    uint16 = 0
)

// Map is a length×length score map. Cells start Blocked; callers open the
// passable ones with Open, mark goals with SetTarget and then Relax.
type Map struct {
	Length int
	Score  []uint16
}

func New(length int) *Map {
	s := make([]uint16, length*length)
	for i := range s {
		s[i] = Blocked
	}
	return &Map{Length: length, Score: s}
}

func (m *Map) Open(pos int)      { m.Score[pos] = Unreached }
func (m *Map) Block(pos int)     { m.Score[pos] = Blocked }
func (m *Map) SetTarget(pos int) { m.Score[pos] = Target }

func (m *Map) At(y, x int) uint16 { return m.Score[y*m.Length+x] }

// HasTarget reports whether any cell is a goal.
func (m *Map) HasTarget() bool {
	for _, s := range m.Score {
		if s == Target {
			return true
		}
	}
	return false
}

// Relax propagates distances from the targets until no cell improves.
// Blocked cells neither receive nor pass on a distance.
func (m *Map) Relax() {
	for changed := true; changed; {
		changed = false
		for pos, s := range m.Score {
			if s == Blocked {
				continue
			}
			y, x := pos/m.Length, pos%m.Length
			best := s
			for _, d := range grid.Directions {
				ny, nx, ok := grid.Step(y, x, d, m.Length)
				if !ok {
					continue
				}
				n := m.Score[ny*m.Length+nx]
				if n >= Unreached {
					continue
				}
				if n+1 < best {
					best = n + 1
				}
			}
			if best < s {
				m.Score[pos] = best
				changed = true
			}
		}
	}
}

// Neighbors returns the six neighbour scores of (y, x) in grid.Directions
// order; off-map neighbours score Blocked.
func (m *Map) Neighbors(y, x int) [6]uint16 {
	var out [6]uint16
	for i, d := range grid.Directions {
		ny, nx, ok := grid.Step(y, x, d, m.Length)
		if !ok {
			out[i] = Blocked
			continue
		}
		out[i] = m.Score[ny*m.Length+nx]
	}
	return out
}

// Descend picks the lowest-scoring reachable neighbour that scores below
// (y, x) itself, so a seeker already on a target stays put. Ties are broken
// with draw() % count; draw is not called without a tie.
func (m *Map) Descend(y, x int, draw func() uint16) (grid.Dir, bool) {
	scores := m.Neighbors(y, x)
	best := Unreached
	for _, s := range scores {
		if s < best {
			best = s
		}
	}
	if best >= Unreached || best >= m.At(y, x) {
		return 0, false
	}
	return pick(scores, best, draw), true
}

// Ascend picks the highest-scoring neighbour that scores above (y, x) itself
// and is not Blocked, moving away from the targets.
func (m *Map) Ascend(y, x int, draw func() uint16) (grid.Dir, bool) {
	own := m.At(y, x)
	scores := m.Neighbors(y, x)
	var best uint16
	found := false
	for _, s := range scores {
		if s == Blocked || s <= own {
			continue
		}
		if !found || s > best {
			best = s
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return pick(scores, best, draw), true
}

// Toward returns a neighbour direction whose score equals want, ties broken
// as in Descend.
func (m *Map) Toward(y, x int, want uint16, draw func() uint16) (grid.Dir, bool) {
	scores := m.Neighbors(y, x)
	for _, s := range scores {
		if s == want {
			return pick(scores, want, draw), true
		}
	}
	return 0, false
}

func pick(scores [6]uint16, want uint16, draw func() uint16) grid.Dir {
	var tied [6]grid.Dir
	n := 0
	for i, s := range scores {
		if s == want {
			tied[n] = grid.Directions[i]
			n++
		}
	}
	if n == 1 {
		return tied[0]
	}
	return tied[int(draw())%n]
}
