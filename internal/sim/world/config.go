package world

// Config holds the terrain rules and AI radii of a world. Zero values fall
// back to the defaults below.
type Config struct {
	// Terrain symbols actors can walk on and symbols that block sight.
	Passable string
	Hiding   string

	// ViewRadius limits sight in hex steps; 0 means unlimited.
	ViewRadius int

	FearDistance   int
	AttackDistance int

	// Food counts as nutritious when its tool power exceeds the eater's
	// hunger per turn times the use action's effort times this factor.
	EatThresholdFactor int

	// Bound on random draws when searching for a free cell.
	MaxFreeCellDraws int

	// Bound on consecutive fruitless draws during map generation.
	MaxMapGenDraws int

	TerrainNames map[byte]string
}

func (c *Config) applyDefaults() {
	if c.Passable == "" {
		c.Passable = "."
	}
	if c.Hiding == "" {
		c.Hiding = "X"
	}
	if c.ViewRadius < 0 {
		c.ViewRadius = 0
	}
	if c.FearDistance <= 0 {
		c.FearDistance = 5
	}
	if c.AttackDistance <= 0 {
		c.AttackDistance = 1
	}
	if c.EatThresholdFactor <= 0 {
		c.EatThresholdFactor = 1
	}
	if c.MaxFreeCellDraws <= 0 {
		c.MaxFreeCellDraws = 65535
	}
	if c.MaxMapGenDraws <= 0 {
		c.MaxMapGenDraws = 1 << 20
	}
	if c.TerrainNames == nil {
		c.TerrainNames = map[byte]string{
			' ': "unknown",
			'.': "ground",
			'X': "tree",
			'~': "water",
		}
	}
}
