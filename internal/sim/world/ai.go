package world

import (
	"math"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/pathing"
)

type goal int

const (
	goalFlee goal = iota
	goalPrey
	goalFood
	goalExplore
)

// DefaultAI tries, in order: fleeing a visible threat, eating carried food,
// picking up food underfoot, chasing prey, walking to remembered food and
// exploring stale memory. It waits when nothing applies.
type DefaultAI struct{}

func (DefaultAI) Decide(w *World, a *Actor) {
	wait := w.ActionByName(ActWait)
	if wait == nil {
		return
	}
	a.Command = wait.ID
	if w.flee(a) {
		return
	}
	if use := w.ActionByName(ActUse); use != nil {
		if slot := w.foodSlot(a); slot >= 0 {
			a.Command = use.ID
			a.Argument = slot
			return
		}
	}
	if pick := w.ActionByName(ActPickUp); pick != nil && w.foodUnderfoot(a) {
		if t := w.types[a.Type]; t != nil && len(a.Carries) < t.Storage {
			a.Command = pick.ID
			return
		}
	}
	for _, g := range []goal{goalPrey, goalFood, goalExplore} {
		if w.seek(a, g) {
			return
		}
	}
}

// visibleOthers lists the living, uncarried actors a can see.
func (w *World) visibleOthers(a *Actor) []*Actor {
	var out []*Actor
	for _, o := range w.actors {
		if o == a || o.Carried || !o.Alive() {
			continue
		}
		if w.sees(a, o.Y, o.X) {
			out = append(out, o)
		}
	}
	return out
}

// isPrey: a out-classes o and o's corpse is worth eating for a.
func (w *World) isPrey(a, o *Actor) bool {
	ot := w.types[o.Type]
	if ot == nil || a.Lifepoints <= ot.Lifepoints {
		return false
	}
	return w.nutritious(ot.CorpseID, a.Type)
}

// isThreat: o out-classes a and a's corpse is worth eating for o.
func (w *World) isThreat(a, o *Actor) bool {
	ot, at := w.types[o.Type], w.types[a.Type]
	if ot == nil || at == nil || a.Lifepoints >= ot.Lifepoints {
		return false
	}
	return w.nutritious(at.CorpseID, o.Type)
}

// foodSighting: a remembers food worth eating at s on known terrain.
func (w *World) foodSighting(a *Actor, s memmap.Sighting) bool {
	if a.MemMap == nil || a.MemMap[s.Y*w.length+s.X] == memmap.Unknown {
		return false
	}
	return w.nutritious(s.Type, a.Type)
}

func (w *World) hasTargets(a *Actor, g goal) bool {
	switch g {
	case goalFlee, goalPrey:
		if a.Visible == nil {
			return false
		}
		for _, o := range w.visibleOthers(a) {
			if (g == goalFlee && w.isThreat(a, o)) || (g == goalPrey && w.isPrey(a, o)) {
				return true
			}
		}
	case goalFood:
		for _, s := range a.MemThings {
			if w.foodSighting(a, s) {
				return true
			}
		}
	case goalExplore:
		return true
	}
	return false
}

// scoreMap seeds a pathing map for goal g over a's remembered terrain. For
// goalExplore the targets are cells of staleness depth.
func (w *World) scoreMap(a *Actor, g goal, depth byte) *pathing.Map {
	m := pathing.New(w.length)
	for pos, c := range a.MemMap {
		if w.passable(c) {
			m.Open(pos)
		}
	}
	others := w.visibleOthers(a)
	switch g {
	case goalFlee:
		for _, o := range others {
			if w.isThreat(a, o) {
				m.SetTarget(o.Y*w.length + o.X)
			}
		}
	case goalPrey:
		for _, o := range others {
			if w.isPrey(a, o) {
				m.SetTarget(o.Y*w.length + o.X)
			}
		}
	case goalFood:
		for _, s := range a.MemThings {
			if w.foodSighting(a, s) {
				m.SetTarget(s.Y*w.length + s.X)
			}
		}
	case goalExplore:
		for pos, c := range a.MemDepth {
			if c == depth {
				m.SetTarget(pos)
			}
		}
	}
	if g == goalPrey {
		return m
	}
	for _, o := range others {
		pos := o.Y*w.length + o.X
		if g == goalFlee && m.Score[pos] == pathing.Target {
			continue
		}
		m.Block(pos)
	}
	return m
}

// seek queues a move toward the nearest target of g. Exploration starts with
// never-seen cells and then settles for ever fresher memories.
func (w *World) seek(a *Actor, g goal) bool {
	move := w.ActionByName(ActMove)
	if move == nil || a.MemMap == nil {
		return false
	}
	tries, depth := 1, memmap.Unknown
	if g == goalExplore {
		tries = 10
	}
	for i := 0; i < tries; i++ {
		if !w.hasTargets(a, g) {
			return false
		}
		m := w.scoreMap(a, g, depth)
		m.Relax()
		if d, ok := m.Descend(a.Y, a.X, w.rand.Next); ok {
			a.Command = move.ID
			a.Argument = int(d)
			return true
		}
		if depth == memmap.Unknown {
			depth = memmap.Forgotten
		} else {
			depth--
		}
	}
	return false
}

// flee queues a move away from visible threats, or an attack once one is in
// reach. It returns true without a move when a threat is inside the fear
// radius and there is no way out; the actor then waits.
func (w *World) flee(a *Actor) bool {
	move := w.ActionByName(ActMove)
	if move == nil || a.MemMap == nil || !w.hasTargets(a, goalFlee) {
		return false
	}
	m := w.scoreMap(a, goalFlee, 0)
	m.Relax()
	own := int(m.At(a.Y, a.X))
	fear := w.cfg.FearDistance
	if a.Satiation < 0 {
		fear = int(float64(fear) / math.Sqrt(float64(-a.Satiation)))
	}
	d, ok := m.Ascend(a.Y, a.X, w.rand.Next)
	switch {
	case !ok && own >= 1 && own <= w.cfg.AttackDistance:
		d, ok = m.Toward(a.Y, a.X, uint16(own-1), w.rand.Next)
	case ok && own > fear:
		ok = false
	}
	if ok {
		a.Command = move.ID
		a.Argument = int(d)
		return true
	}
	return own <= fear
}

// foodSlot picks the carried food that brings satiation closest to the eat
// threshold, provided it improves on the current imbalance. -1 if none.
func (w *World) foodSlot(a *Actor) int {
	cost := w.eatCost(a.Type)
	best, slot := -1, -1
	for i, id := range a.Carries {
		item := w.Actor(id)
		if item == nil {
			continue
		}
		t := w.types[item.Type]
		if t == nil || t.Tool != ToolFood {
			continue
		}
		score := abs(a.Satiation + t.ToolPower - cost)
		if (best < 0 && score < abs(a.Satiation)) || (best >= 0 && score < best) {
			best, slot = score, i
		}
	}
	return slot
}

func (w *World) foodUnderfoot(a *Actor) bool {
	for _, o := range w.actors {
		if o == a || o.Carried || o.Alive() || o.Y != a.Y || o.X != a.X {
			continue
		}
		if w.nutritious(o.Type, a.Type) {
			return true
		}
	}
	return false
}
