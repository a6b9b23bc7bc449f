package world

import (
	"bytes"
	"fmt"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/rng"
)

const (
	TerrainWater  byte = '~'
	TerrainGround byte = '.'
	TerrainTree   byte = 'X'
)

// DefaultMapGen grows one island of ground from the map centre until it
// touches the map edge, then scatters clustered trees over it.
type DefaultMapGen struct {
	// MaxDraws bounds consecutive fruitless draws; 0 means 1<<20.
	MaxDraws int
}

func (g DefaultMapGen) Generate(length int, rand *rng.Source) ([]byte, error) {
	limit := g.MaxDraws
	if limit <= 0 {
		limit = 1 << 20
	}
	cells := bytes.Repeat([]byte{TerrainWater}, length*length)
	center := length * length / 2
	if length%2 == 0 {
		center += length / 2
	}
	cells[center] = TerrainGround
	near := func(y, x int, c byte) bool {
		return grid.IsNeighborOf(y, x, length, func(ny, nx int) bool { return cells[ny*length+nx] == c })
	}

	for fails := 0; ; {
		y := int(rand.Next()) % length
		x := int(rand.Next()) % length
		pos := y*length + x
		if cells[pos] == TerrainWater && near(y, x, TerrainGround) {
			if y == 0 || x == 0 || y == length-1 || x == length-1 {
				break
			}
			cells[pos] = TerrainGround
			fails = 0
			continue
		}
		if fails++; fails >= limit {
			return nil, fmt.Errorf("grow island: %w", ErrExhausted)
		}
	}

	if err := PlantTrees(cells, length, rand, limit); err != nil {
		return nil, err
	}
	return cells, nil
}

// PlantTrees turns length²/16+1 ground cells into trees. A tree needs a tree
// neighbour unless a 1-in-32 draw allows it to stand alone.
func PlantTrees(cells []byte, length int, rand *rng.Source, maxDraws int) error {
	near := func(y, x int, c byte) bool {
		return grid.IsNeighborOf(y, x, length, func(ny, nx int) bool { return cells[ny*length+nx] == c })
	}
	trees := length * length / 16
	for placed, fails := 0, 0; placed <= trees; {
		single := rand.Next() % 32
		y := int(rand.Next()) % length
		x := int(rand.Next()) % length
		pos := y*length + x
		if cells[pos] == TerrainGround && (single == 0 || near(y, x, TerrainTree)) {
			cells[pos] = TerrainTree
			placed++
			fails = 0
			continue
		}
		if fails++; fails >= maxDraws {
			return fmt.Errorf("plant trees: %w", ErrExhausted)
		}
	}
	return nil
}

// freeCell draws random cells until it finds a passable one without a living
// actor on it.
func (w *World) freeCell() (int, int, error) {
	for i := 0; i < w.cfg.MaxFreeCellDraws; i++ {
		y := int(w.rand.Next()) % w.length
		x := int(w.rand.Next()) % w.length
		if !w.passable(w.cells[y*w.length+x]) {
			continue
		}
		if w.livingAt(y, x, nil) != nil {
			continue
		}
		return y, x, nil
	}
	return 0, 0, fmt.Errorf("free cell: %w", ErrExhausted)
}

// livingAt returns the lowest-id living, uncarried actor at (y, x) other than
// skip.
func (w *World) livingAt(y, x int, skip *Actor) *Actor {
	for _, a := range w.actors {
		if a == skip || a.Carried || !a.Alive() {
			continue
		}
		if a.Y == y && a.X == x {
			return a
		}
	}
	return nil
}
