package world

import (
	"math"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
)

const (
	satiationMin = -32768
	satiationMax = 32767
)

func (w *World) fire(a *Actor, act *ActionType) {
	switch act.Name {
	case ActWait:
		if a.ID == PlayerID {
			w.msg.Log("You WAIT.")
		}
	case ActMove:
		w.actMove(a)
	case ActPickUp:
		w.actPickUp(a)
	case ActDrop:
		w.actDrop(a)
	case ActUse:
		w.actUse(a)
	}
}

func (w *World) typeName(id int) string {
	if t := w.types[id]; t != nil {
		return t.Name
	}
	return "?"
}

// actMove walks one cell in the argument's direction. A living actor on the
// destination is attacked instead and the mover stays put.
func (w *World) actMove(a *Actor) {
	d := grid.Dir(a.Argument)
	isPlayer := a.ID == PlayerID
	y, x, ok := grid.Step(a.Y, a.X, d, w.length)
	if ok {
		if target := w.livingAt(y, x, a); target != nil {
			name := w.typeName(target.Type)
			switch {
			case isPlayer:
				w.msg.Log("You WOUND " + name + ".")
			case target.ID == PlayerID:
				w.msg.Log(w.typeName(a.Type) + " WOUNDS you.")
			}
			if w.hooks.Lifepoints.Decrement(w, target) == 0 && isPlayer {
				w.msg.Log(name + " dies.")
			}
			return
		}
		ok = w.passable(w.cells[y*w.length+x])
	}
	if !ok {
		if isPlayer {
			w.msg.Log("You CAN'T move " + d.String() + ".")
		}
		return
	}
	w.place(a, y, x)
	w.buildVisibility(a)
	if isPlayer {
		w.msg.Log("You MOVE " + d.String() + ".")
	}
}

// actPickUp takes the lowest-type-id inanimate object at a's cell. Actors
// other than the player only take food worth eating.
func (w *World) actPickUp(a *Actor) {
	isPlayer := a.ID == PlayerID
	t := w.types[a.Type]
	if t == nil || len(a.Carries) >= t.Storage {
		if isPlayer {
			w.msg.Log("CAN'T pick up: No storage room to carry more.")
		}
		return
	}
	var pick *Actor
	for _, o := range w.actors {
		if o == a || o.Carried || o.Alive() || o.Y != a.Y || o.X != a.X {
			continue
		}
		if !isPlayer && !w.nutritious(o.Type, a.Type) {
			continue
		}
		if pick == nil || o.Type < pick.Type {
			pick = o
		}
	}
	if pick == nil {
		if isPlayer {
			w.msg.Log("CAN'T pick up nothing.")
		}
		return
	}
	pick.Carried = true
	a.Carries = append(a.Carries, pick.ID)
	if isPlayer {
		w.msg.Log("You PICK UP " + w.typeName(pick.Type) + ".")
	}
}

func (w *World) actDrop(a *Actor) {
	isPlayer := a.ID == PlayerID
	if a.Argument < 0 || a.Argument >= len(a.Carries) {
		if isPlayer {
			w.msg.Log("You have NOTHING to drop in your inventory.")
		}
		return
	}
	item := w.release(a, a.Argument)
	if isPlayer && item != nil {
		w.msg.Log("You DROP " + w.typeName(item.Type) + ".")
	}
}

// actUse eats the argument's inventory slot if it is food. Whatever the food
// carried falls to the ground.
func (w *World) actUse(a *Actor) {
	isPlayer := a.ID == PlayerID
	if a.Argument < 0 || a.Argument >= len(a.Carries) {
		if isPlayer {
			w.msg.Log("You have NOTHING to use in your inventory.")
		}
		return
	}
	item := w.Actor(a.Carries[a.Argument])
	var t *ActorType
	if item != nil {
		t = w.types[item.Type]
	}
	if t == nil || t.Tool != ToolFood {
		if isPlayer {
			w.msg.Log("You try to use this object, but FAIL.")
		}
		return
	}
	w.release(a, a.Argument)
	for len(item.Carries) > 0 {
		w.release(item, 0)
	}
	w.removeActor(item.ID)
	a.Satiation = clampSatiation(a.Satiation + t.ToolPower)
	if isPlayer {
		w.msg.Log("You EAT.")
	}
}

func clampSatiation(v int) int {
	if v < satiationMin {
		return satiationMin
	}
	if v > satiationMax {
		return satiationMax
	}
	return v
}

// hungerPerTurn is the satiation an actor of type t burns each turn.
func hungerPerTurn(t *ActorType) int {
	if t == nil {
		return 0
	}
	return int(math.Sqrt(float64(t.Lifepoints)))
}

// eatCost is the least tool power that makes food worth eating for eaterType.
func (w *World) eatCost(eaterType int) int {
	effort := 1
	if use := w.ActionByName(ActUse); use != nil && use.Effort > 0 {
		effort = use.Effort
	}
	return hungerPerTurn(w.types[eaterType]) * effort * w.cfg.EatThresholdFactor
}

// nutritious reports whether objects of foodType are worth eating for
// eaterType.
func (w *World) nutritious(foodType, eaterType int) bool {
	t := w.types[foodType]
	return t != nil && t.Tool == ToolFood && t.ToolPower > w.eatCost(eaterType)
}
