package plugins

import (
	"strconv"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

const (
	FieldBurden = "TT_BURDEN"

	// Carried burden per extra turn of move effort.
	burdenPerTurn = 10
)

// burdenPlugin slows down movement by the weight an actor carries.
type burdenPlugin struct{}

func (burdenPlugin) Name() string { return "burden" }

func (burdenPlugin) Register(r *Registry) error {
	if err := r.AddField(world.FieldSpec{Name: FieldBurden, Scope: world.ScopeType, Min: 0, Max: 255}); err != nil {
		return err
	}
	next := r.Hooks().Effort
	if next == nil {
		next = world.DefaultEffort{}
	}
	if err := r.SetEffort(burdenEffort{next: next}); err != nil {
		return err
	}
	return r.AddVerb("BURDEN", Verb{Meta: true, Handler: reportBurden})
}

type burdenEffort struct{ next world.EffortCalculator }

func (b burdenEffort) Effort(w *world.World, a *world.Actor, act *world.ActionType) int {
	e := b.next.Effort(w, a, act)
	if act.Name != world.ActMove {
		return e
	}
	return e + carriedBurden(w, a)/burdenPerTurn
}

func carriedBurden(w *world.World, a *world.Actor) int {
	total := 0
	for _, id := range a.Carries {
		item := w.Actor(id)
		if item == nil {
			continue
		}
		if t := w.Type(item.Type); t != nil {
			total += t.Extra[FieldBurden]
		}
	}
	return total
}

func reportBurden(w *world.World, out func(string), _ []string) error {
	p := w.Player()
	if p == nil {
		out("BURDEN 0")
		return nil
	}
	out("BURDEN " + strconv.Itoa(carriedBurden(w, p)))
	return nil
}
