// Package memmap keeps an actor's fading knowledge of the map: remembered
// terrain, a per-cell staleness digit and remembered object sightings.
package memmap

import "github.com/plomlompom/plomrogue-sub000/internal/sim/fov"

const (
	Unknown   byte = ' '
	Fresh     byte = '0'
	Forgotten byte = '9'
)

// Sighting is a remembered inanimate object of type Type at (Y, X).
type Sighting struct {
	Type int
	Y    int
	X    int
}

// Blank returns a map of unknown cells.
func Blank(length int) []byte {
	m := make([]byte, length*length)
	for i := range m {
		m[i] = Unknown
	}
	return m
}

// ValidDepth reports whether c may appear in a staleness map.
func ValidDepth(c byte) bool {
	return c == Unknown || (c >= Fresh && c <= Forgotten)
}

// Update refreshes mem and depth from the visibility mask. When age is set,
// every non-visible cell remembered with staleness d < 9 advances by one with
// probability 1/2^d. draw is called once per such cell in cell order, which
// keeps the fade replayable from the world seed.
func Update(mem, depth, visible, live []byte, draw func() uint16, age bool) {
	if age {
		for pos, c := range depth {
			if visible[pos] == fov.Seen {
				continue
			}
			if c < Fresh || c >= Forgotten {
				continue
			}
			if draw()%(uint16(1)<<(c-Fresh)) == 0 {
				depth[pos] = c + 1
			}
		}
	}
	for pos, v := range visible {
		if v != fov.Seen {
			continue
		}
		mem[pos] = live[pos]
		depth[pos] = Fresh
	}
}

// Prune drops sightings whose cell is visible now; the live view supersedes
// memory there.
func Prune(sightings []Sighting, visible []byte, length int) []Sighting {
	out := sightings[:0]
	for _, s := range sightings {
		if visible[s.Y*length+s.X] == fov.Seen {
			continue
		}
		out = append(out, s)
	}
	return out
}
