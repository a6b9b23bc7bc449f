package world

import (
	"github.com/plomlompom/plomrogue-sub000/internal/sim/fov"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
)

func (w *World) buildVisibility(a *Actor) {
	if w.cells == nil {
		a.Visible = fov.Blank(w.length)
		return
	}
	a.Visible = fov.Build(w.cells, w.length, a.Y, a.X, w.hides, w.cfg.ViewRadius)
}

// updateMemory folds a's current view into its memory and re-records the
// inanimate objects it can see.
func (w *World) updateMemory(a *Actor, age bool) {
	if a.Visible == nil {
		w.buildVisibility(a)
	}
	if a.MemMap == nil {
		a.MemMap = memmap.Blank(w.length)
	}
	if a.MemDepth == nil {
		a.MemDepth = memmap.Blank(w.length)
	}
	cells := w.cells
	if cells == nil {
		cells = memmap.Blank(w.length)
	}
	memmap.Update(a.MemMap, a.MemDepth, a.Visible, cells, w.rand.Next, age)
	a.MemThings = memmap.Prune(a.MemThings, a.Visible, w.length)
	for _, o := range w.actors {
		if o.Carried || o.Alive() {
			continue
		}
		if a.Visible[o.Y*w.length+o.X] == fov.Seen {
			a.MemThings = append(a.MemThings, memmap.Sighting{Type: o.Type, Y: o.Y, X: o.X})
		}
	}
}

// sees reports whether a currently sees (y, x).
func (w *World) sees(a *Actor, y, x int) bool {
	return a.Visible != nil && a.Visible[y*w.length+x] == fov.Seen
}

// Kill turns a into its type's corpse. Everything it carried falls to the
// ground. The player keeps a blank view; other actors lose view and memory.
func (w *World) Kill(a *Actor) {
	a.Lifepoints = 0
	for len(a.Carries) > 0 {
		w.release(a, 0)
	}
	if t := w.types[a.Type]; t != nil {
		a.Type = t.CorpseID
	}
	if a.ID == PlayerID {
		a.Visible = fov.Blank(w.length)
		w.msg.Log("You die.")
		return
	}
	a.Visible = nil
	a.MemMap = nil
	a.MemDepth = nil
	a.MemThings = nil
}
