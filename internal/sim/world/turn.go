package world

import (
	"fmt"
	"strconv"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
)

// Step advances the world until the player has to choose a command again or
// is dead. Each completed pass over the actors is one turn.
func (w *World) Step() {
	for w.active {
		player := w.Player()
		if player == nil || !player.Alive() {
			return
		}
		occupied := w.occupancy()
		ids := make([]int, len(w.actors))
		for i, a := range w.actors {
			ids[i] = a.ID
		}
		for _, id := range ids {
			a := w.Actor(id)
			if a == nil || a.Carried {
				continue
			}
			if a.Alive() {
				if a.Command == 0 {
					w.updateMemory(a, true)
					if a.ID == PlayerID {
						return
					}
					w.hooks.AI.Decide(w, a)
				}
				w.heal(a)
				w.hunger(a)
				if a.Alive() {
					w.advance(a)
				}
			}
			w.reproduce(a, occupied)
		}
		w.turn++
		w.worldstateDue = true
		w.logTurn()
	}
}

// occupancy marks the cells holding a living, uncarried actor.
func (w *World) occupancy() []bool {
	occ := make([]bool, w.length*w.length)
	for _, a := range w.actors {
		if a.Alive() && !a.Carried {
			occ[a.Y*w.length+a.X] = true
		}
	}
	return occ
}

// advance adds one turn of progress to a's command and fires it once the
// effort is met.
func (w *World) advance(a *Actor) {
	act := w.actions[a.Command]
	if act == nil {
		a.Command, a.Progress = 0, 0
		return
	}
	a.Progress++
	if a.Progress < w.hooks.Effort.Effort(w, a, act) {
		return
	}
	if a.ID == PlayerID {
		w.lastPlayerCmd = w.describeCommand(a)
	}
	w.fire(a, act)
	a.Command, a.Progress = 0, 0
}

func (w *World) heal(a *Actor) {
	t := w.types[a.Type]
	if t == nil || a.Lifepoints >= t.Lifepoints {
		return
	}
	divider := 1
	if act := w.actions[a.Command]; act != nil && act.Name == ActWait {
		divider = 8
	}
	test := abs(a.Satiation) / divider
	if test <= 1 || int(w.rand.Next())%test == 1 {
		a.Lifepoints++
		if a.ID == PlayerID {
			w.msg.Log("You HEAL.")
		}
	}
}

// hunger burns satiation. The further satiation strays from zero either way,
// the likelier a lifepoint is lost.
func (w *World) hunger(a *Actor) {
	if a.Satiation > satiationMin {
		a.Satiation = clampSatiation(a.Satiation - hungerPerTurn(w.types[a.Type]))
	}
	if a.Satiation == 0 || int(w.rand.Next()) >= abs(a.Satiation) {
		return
	}
	if a.ID == PlayerID {
		if a.Satiation < 0 {
			w.msg.Log("You SUFFER from hunger.")
		} else {
			w.msg.Log("You SUFFER from over-eating.")
		}
	}
	w.hooks.Lifepoints.Decrement(w, a)
}

// reproduce spawns a copy of a on a random free neighbour cell. Candidates
// are scanned in direction-name order; occupied is the turn-start occupancy
// and gains every newborn.
func (w *World) reproduce(a *Actor, occupied []bool) {
	if w.cells == nil || !w.hooks.Reproduce.CanReproduce(w, a) {
		return
	}
	var cands [6]int
	n := 0
	for _, d := range grid.ByName {
		y, x, ok := grid.Step(a.Y, a.X, d, w.length)
		if !ok {
			continue
		}
		pos := y*w.length + x
		if occupied[pos] || !w.passable(w.cells[pos]) {
			continue
		}
		cands[n] = pos
		n++
	}
	if n == 0 {
		return
	}
	pos := cands[int(w.rand.Next())%n]
	w.spawn(w.nextActorID(), a.Type, pos/w.length, pos%w.length)
	occupied[pos] = true
}

func (w *World) logTurn() {
	entry := TurnLogEntry{
		Turn:          w.turn,
		PlayerCommand: w.lastPlayerCmd,
		Actors:        len(w.actors),
		Seed:          w.rand.Seed(),
	}
	w.lastPlayerCmd = ""
	if w.turnLogger == nil {
		return
	}
	entry.Digest = w.StateDigest()
	// The logger reports its own failures; the turn stands either way.
	_ = w.turnLogger.WriteTurn(entry)
}

func (w *World) describeCommand(a *Actor) string {
	act := w.actions[a.Command]
	if act == nil {
		return ""
	}
	switch act.Name {
	case ActMove:
		return act.Name + " " + grid.Dir(a.Argument).String()
	case ActDrop, ActUse:
		return act.Name + " " + strconv.Itoa(a.Argument)
	}
	return act.Name
}

// PlayerAct queues the named action for the player and runs the world until
// the player is asked again.
func (w *World) PlayerAct(name string, arg int) error {
	p, err := w.livePlayer()
	if err != nil {
		return err
	}
	act := w.ActionByName(name)
	if act == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no %s action defined", name)
	}
	switch name {
	case ActDrop, ActUse:
		if len(p.Carries) == 0 {
			msg := fmt.Sprintf("You have NOTHING to %s in your inventory.", name)
			w.msg.Log(msg)
			return protocol.Errorf(protocol.ErrPrecondition, "%s", msg)
		}
		if arg < 0 || arg >= len(p.Carries) {
			return protocol.Errorf(protocol.ErrOutOfRange, "illegal inventory index %d", arg)
		}
	case ActMove:
		if !grid.Dir(arg).Valid() {
			return protocol.Errorf(protocol.ErrOutOfRange, "illegal move direction")
		}
	}
	p.Command = act.ID
	p.Argument = arg
	w.Step()
	return nil
}

// PlayerAI lets the AI pick the player's next command, then runs the world.
func (w *World) PlayerAI() error {
	p, err := w.livePlayer()
	if err != nil {
		return err
	}
	w.hooks.AI.Decide(w, p)
	w.Step()
	return nil
}

func (w *World) livePlayer() (*Actor, error) {
	if !w.active {
		return nil, protocol.Errorf(protocol.ErrPrecondition, "world is not active")
	}
	p := w.Player()
	if p == nil || !p.Alive() {
		return nil, protocol.Errorf(protocol.ErrPrecondition, "player is dead")
	}
	return p, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
