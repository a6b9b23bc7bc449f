// Package grid maps row/column positions on a hex tiling packed into a square
// array. Odd rows are shifted half a cell to the east.
package grid

// Dir is one of the six hex directions. Its value is the key character the
// protocol stores in an actor's argument slot.
type Dir byte

const (
	NorthEast Dir = 'e'
	East      Dir = 'd'
	SouthEast Dir = 'c'
	SouthWest Dir = 'x'
	West      Dir = 's'
	NorthWest Dir = 'w'
)

// Directions is the clockwise scan order starting north-east. Neighbour score
// scans and tie-breaks iterate in this order.
var Directions = [6]Dir{NorthEast, East, SouthEast, SouthWest, West, NorthWest}

// ByName is the alphabetical order of the direction names. Reproduction scans
// candidate cells in this order so recorded sessions replay draw-for-draw.
var ByName = [6]Dir{East, NorthEast, NorthWest, SouthEast, SouthWest, West}

var names = map[Dir]string{
	East:      "east",
	SouthEast: "south-east",
	SouthWest: "south-west",
	West:      "west",
	NorthWest: "north-west",
	NorthEast: "north-east",
}

var byName = map[string]Dir{
	"east":       East,
	"south-east": SouthEast,
	"south-west": SouthWest,
	"west":       West,
	"north-west": NorthWest,
	"north-east": NorthEast,
}

func (d Dir) String() string {
	if n, ok := names[d]; ok {
		return n
	}
	return "?"
}

// Valid reports whether d is one of the six directions.
func (d Dir) Valid() bool {
	_, ok := names[d]
	return ok
}

// ParseName resolves a wire direction name such as "south-west".
func ParseName(name string) (Dir, bool) {
	d, ok := byName[name]
	return d, ok
}

// FromKey resolves a stored argument value back to a direction.
func FromKey(v int) (Dir, bool) {
	if v < 0 || v > 255 {
		return 0, false
	}
	d := Dir(v)
	return d, d.Valid()
}

// Opposite returns the direction pointing back.
func Opposite(d Dir) Dir {
	switch d {
	case East:
		return West
	case West:
		return East
	case NorthEast:
		return SouthWest
	case SouthWest:
		return NorthEast
	case SouthEast:
		return NorthWest
	case NorthWest:
		return SouthEast
	}
	return d
}

// Neighbor returns the raw neighbour of (y, x) in direction d without any
// bounds check. The diagonal column offset depends on the row's parity.
func Neighbor(y, x int, d Dir) (int, int) {
	odd := y & 1
	switch d {
	case East:
		return y, x + 1
	case West:
		return y, x - 1
	case NorthEast:
		return y - 1, x + odd
	case SouthEast:
		return y + 1, x + odd
	case SouthWest:
		return y + 1, x - 1 + odd
	case NorthWest:
		return y - 1, x - 1 + odd
	}
	return y, x
}

// Step moves from (y, x) in direction d on a length×length map. ok is false
// when the destination row or column falls outside [0, length).
func Step(y, x int, d Dir, length int) (ny, nx int, ok bool) {
	if !d.Valid() {
		return y, x, false
	}
	ny, nx = Neighbor(y, x, d)
	if ny < 0 || nx < 0 || ny >= length || nx >= length {
		return y, x, false
	}
	return ny, nx, true
}

// InBounds reports whether (y, x) lies on a length×length map.
func InBounds(y, x, length int) bool {
	return y >= 0 && x >= 0 && y < length && x < length
}

// IsNeighborOf reports whether any legal neighbour of (y, x) satisfies pred.
func IsNeighborOf(y, x, length int, pred func(ny, nx int) bool) bool {
	for _, d := range Directions {
		ny, nx, ok := Step(y, x, d, length)
		if ok && pred(ny, nx) {
			return true
		}
	}
	return false
}

// ToCube converts an offset position to axial cube coordinates (q, r); the
// third coordinate is -q-r.
func ToCube(y, x int) (q, r int) {
	return x - (y-(y&1))/2, y
}

// FromCube is the inverse of ToCube.
func FromCube(q, r int) (y, x int) {
	return r, q + (r-(r&1))/2
}

// Distance is the hex step distance between two positions.
func Distance(y1, x1, y2, x2 int) int {
	q1, r1 := ToCube(y1, x1)
	q2, r2 := ToCube(y2, x2)
	dq := abs(q1 - q2)
	dr := abs(r1 - r2)
	ds := abs((-q1 - r1) - (-q2 - r2))
	return (dq + dr + ds) / 2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
