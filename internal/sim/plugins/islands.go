package plugins

import (
	"bytes"
	"fmt"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/rng"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

// islandsPlugin replaces the single-island map with an archipelago.
type islandsPlugin struct{}

func (islandsPlugin) Name() string { return "islands" }

func (islandsPlugin) Register(r *Registry) error {
	return r.SetMapGenerator(Archipelago{})
}

// Archipelago seeds one island per 256 cells and grows them together until a
// third of the map is land. The outermost ring stays water.
type Archipelago struct {
	MaxDraws int
}

func (g Archipelago) Generate(length int, rand *rng.Source) ([]byte, error) {
	if length < 3 {
		return nil, fmt.Errorf("archipelago: map length %d too small", length)
	}
	limit := g.MaxDraws
	if limit <= 0 {
		limit = 1 << 20
	}
	cells := bytes.Repeat([]byte{world.TerrainWater}, length*length)
	interior := func() (int, int) {
		y := 1 + int(rand.Next())%(length-2)
		x := 1 + int(rand.Next())%(length-2)
		return y, x
	}
	ground := 0
	for i := 0; i < 1+length*length/256; i++ {
		y, x := interior()
		if cells[y*length+x] != world.TerrainGround {
			cells[y*length+x] = world.TerrainGround
			ground++
		}
	}
	isGround := func(ny, nx int) bool { return cells[ny*length+nx] == world.TerrainGround }
	want := length * length / 3
	for fails := 0; ground < want && fails < limit; {
		y, x := interior()
		pos := y*length + x
		if cells[pos] == world.TerrainWater && grid.IsNeighborOf(y, x, length, isGround) {
			cells[pos] = world.TerrainGround
			ground++
			fails = 0
			continue
		}
		fails++
	}
	if err := world.PlantTrees(cells, length, rand, limit); err != nil {
		return nil, fmt.Errorf("archipelago: %w", err)
	}
	return cells, nil
}
