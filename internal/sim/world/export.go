package world

import (
	"sort"
	"strconv"
	"strings"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/fov"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
)

// Worldstate renders the player's view for display clients: turn,
// lifepoints, satiation, inventory up to a "%" line, position, map length,
// then the visible grid and the remembered grid, one row per line.
func (w *World) Worldstate() (string, error) {
	p := w.Player()
	if p == nil {
		return "", protocol.Errorf(protocol.ErrPrecondition, "no player")
	}
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	line(strconv.Itoa(w.turn))
	line(strconv.Itoa(p.Lifepoints))
	line(strconv.Itoa(p.Satiation))
	if len(p.Carries) == 0 {
		line("(none)")
	}
	for _, id := range p.Carries {
		if item := w.Actor(id); item != nil {
			line(w.typeName(item.Type))
		}
	}
	line("%")
	line(strconv.Itoa(p.Y))
	line(strconv.Itoa(p.X))
	line(strconv.Itoa(w.length))
	writeGrid(&b, w.visibleGrid(p), w.length)
	writeGrid(&b, w.memoryGrid(p), w.length)
	return b.String(), nil
}

func writeGrid(b *strings.Builder, cells []byte, length int) {
	for y := 0; y < length; y++ {
		b.Write(cells[y*length : (y+1)*length])
		b.WriteByte('\n')
	}
}

// visibleGrid shows visible terrain with every uncarried actor on a visible
// cell drawn on top; lower type ids win.
func (w *World) visibleGrid(p *Actor) []byte {
	out := memmap.Blank(w.length)
	if p.Visible == nil || w.cells == nil {
		return out
	}
	for pos, v := range p.Visible {
		if v == fov.Seen {
			out[pos] = w.cells[pos]
		}
	}
	actors := make([]*Actor, 0, len(w.actors))
	for _, a := range w.actors {
		if !a.Carried && w.sees(p, a.Y, a.X) {
			actors = append(actors, a)
		}
	}
	sort.SliceStable(actors, func(i, j int) bool { return actors[i].Type > actors[j].Type })
	for _, a := range actors {
		if t := w.types[a.Type]; t != nil {
			out[a.Y*w.length+a.X] = t.Symbol
		}
	}
	return out
}

// memoryGrid shows remembered terrain with remembered objects on top.
func (w *World) memoryGrid(p *Actor) []byte {
	out := memmap.Blank(w.length)
	copy(out, p.MemMap)
	things := append([]memmap.Sighting(nil), p.MemThings...)
	sort.SliceStable(things, func(i, j int) bool { return things[i].Type > things[j].Type })
	for _, s := range things {
		if t := w.types[s.Type]; t != nil {
			out[s.Y*w.length+s.X] = t.Symbol
		}
	}
	return out
}

// ThingsHere names the terrain at (y, x) as the player remembers it, then
// the objects there by ascending type id: the ones present if the player sees
// the cell, the remembered ones otherwise.
func (w *World) ThingsHere(y, x int) ([]string, error) {
	if !w.active {
		return nil, protocol.Errorf(protocol.ErrPrecondition, "command only works on existing worlds")
	}
	if y < 0 || x < 0 || y >= w.length || x >= w.length {
		return nil, protocol.Errorf(protocol.ErrOutOfRange, "position %d,%d outside of map", y, x)
	}
	p := w.Player()
	if p == nil {
		return nil, protocol.Errorf(protocol.ErrPrecondition, "no player")
	}
	terrain := memmap.Unknown
	if p.MemMap != nil {
		terrain = p.MemMap[y*w.length+x]
	}
	name, ok := w.cfg.TerrainNames[terrain]
	if !ok {
		name = "?"
	}
	out := []string{"terrain: " + name}
	visible := w.sees(p, y, x)
	for _, tid := range w.TypeIDs() {
		if visible {
			for _, a := range w.actors {
				if !a.Carried && a.Type == tid && a.Y == y && a.X == x {
					out = append(out, w.types[tid].Name)
				}
			}
			continue
		}
		for _, s := range p.MemThings {
			if s.Type == tid && s.Y == y && s.X == x {
				out = append(out, w.types[tid].Name)
			}
		}
	}
	return out, nil
}
