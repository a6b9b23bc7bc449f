package world

import (
	"bytes"
	"fmt"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/fov"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
)

// MakeWorld seeds the random source, generates a new map and populates it
// from the type templates' start numbers. The player type's actors come
// first, so the player is always id 0.
func (w *World) MakeWorld(seed uint32) error {
	pt := w.types[w.playerType]
	if pt == nil || pt.StartNumber == 0 {
		return protocol.Errorf(protocol.ErrPrecondition, "no player type with start number > 0 defined")
	}
	if w.ActionByName(ActWait) == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no thing action with name %q defined", ActWait)
	}
	w.rand.SetSeed(seed)
	w.actors = nil
	cells, err := w.hooks.MapGen.Generate(w.length, w.rand)
	if err != nil {
		return fmt.Errorf("make world: %w", err)
	}
	if len(cells) != w.length*w.length {
		return fmt.Errorf("make world: generator returned %d cells, want %d", len(cells), w.length*w.length)
	}
	w.cells = cells
	w.active = true
	w.turn = 1

	for i := 0; i < pt.StartNumber; i++ {
		y, x, err := w.freeCell()
		if err != nil {
			return fmt.Errorf("make world: %w", err)
		}
		w.spawn(w.nextActorID(), pt.ID, y, x)
	}
	player := w.Player()
	if player.Visible == nil {
		player.Visible = fov.Blank(w.length)
	}
	w.updateMemory(player, false)

	for _, id := range w.TypeIDs() {
		if id == pt.ID {
			continue
		}
		for i := 0; i < w.types[id].StartNumber; i++ {
			y, x, err := w.freeCell()
			if err != nil {
				return fmt.Errorf("make world: %w", err)
			}
			w.spawn(w.nextActorID(), id, y, x)
		}
	}
	w.worldstateDue = true
	return nil
}

// Activate turns a loaded world on. It needs a wait action, a player and a
// map.
func (w *World) Activate() error {
	if w.active {
		return protocol.Errorf(protocol.ErrPrecondition, "world already active")
	}
	player := w.Player()
	if w.ActionByName(ActWait) == nil || player == nil || w.cells == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "not all conditions for world activation met")
	}
	w.active = true
	for _, a := range w.actors {
		if !a.Alive() {
			continue
		}
		w.buildVisibility(a)
		if a.ID == PlayerID {
			w.updateMemory(a, false)
		}
	}
	if !player.Alive() {
		player.Visible = fov.Blank(w.length)
	}
	w.worldstateDue = true
	return nil
}

// Deactivate stops the world without undoing anything.
func (w *World) Deactivate() {
	w.active = false
	w.worldstateDue = false
}

// SetMapLength resizes the map. It drops the map and every actor.
func (w *World) SetMapLength(n int) error {
	if w.active {
		return protocol.Errorf(protocol.ErrPrecondition, "cannot change map length of an active world")
	}
	w.length = n
	w.cells = nil
	w.actors = nil
	return nil
}

// SetMapRow overwrites row y of the world map.
func (w *World) SetMapRow(y int, row string) error {
	if err := w.checkRow(y, row); err != nil {
		return err
	}
	if w.cells == nil {
		w.cells = bytes.Repeat([]byte{' '}, w.length*w.length)
	}
	copy(w.cells[y*w.length:], row)
	return nil
}

// SetMemoryRow overwrites row y of a's remembered terrain.
func (w *World) SetMemoryRow(a *Actor, y int, row string) error {
	if err := w.checkRow(y, row); err != nil {
		return err
	}
	if a.MemMap == nil {
		a.MemMap = memmap.Blank(w.length)
	}
	copy(a.MemMap[y*w.length:], row)
	return nil
}

// SetDepthRow overwrites row y of a's staleness map.
func (w *World) SetDepthRow(a *Actor, y int, row string) error {
	if err := w.checkRow(y, row); err != nil {
		return err
	}
	for i := 0; i < len(row); i++ {
		if !memmap.ValidDepth(row[i]) {
			return protocol.Errorf(protocol.ErrOutOfRange, "invalid memory depth %q", row[i])
		}
	}
	if a.MemDepth == nil {
		a.MemDepth = memmap.Blank(w.length)
	}
	copy(a.MemDepth[y*w.length:], row)
	return nil
}

func (w *World) checkRow(y int, row string) error {
	if y < 0 || y >= w.length {
		return protocol.Errorf(protocol.ErrOutOfRange, "map line number %d outside map", y)
	}
	if len(row) != w.length {
		return protocol.Errorf(protocol.ErrOutOfRange, "map line length %d unequal map width %d", len(row), w.length)
	}
	return nil
}
