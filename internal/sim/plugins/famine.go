package plugins

import (
	"log"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

// faminePlugin stops hungry actors from reproducing and reports deaths of
// hungry actors to the server log.
type faminePlugin struct{}

func (faminePlugin) Name() string { return "famine" }

func (faminePlugin) Register(r *Registry) error {
	repro := r.Hooks().Reproduce
	if repro == nil {
		repro = world.DefaultReproduction{}
	}
	lp := r.Hooks().Lifepoints
	if lp == nil {
		lp = world.DefaultLifepoints{}
	}
	if err := r.SetReproduction(famineReproduction{next: repro}); err != nil {
		return err
	}
	return r.SetLifepoints(famineLifepoints{next: lp, logger: r.Logger()})
}

type famineReproduction struct{ next world.ReproductionTest }

func (f famineReproduction) CanReproduce(w *world.World, a *world.Actor) bool {
	return a.Satiation >= 0 && f.next.CanReproduce(w, a)
}

type famineLifepoints struct {
	next   world.LifepointHandler
	logger *log.Logger
}

func (f famineLifepoints) Decrement(w *world.World, a *world.Actor) int {
	hungry := a.Satiation < 0
	left := f.next.Decrement(w, a)
	if left == 0 && hungry {
		f.logger.Printf("turn %d: thing %d died hungry (satiation %d)", w.Turn(), a.ID, a.Satiation)
	}
	return left
}
