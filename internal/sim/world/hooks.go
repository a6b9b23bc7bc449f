package world

import "github.com/plomlompom/plomrogue-sub000/internal/sim/rng"

// MapGenerator fills a fresh length×length map.
type MapGenerator interface {
	Generate(length int, rand *rng.Source) ([]byte, error)
}

// ReproductionTest decides whether a may spawn offspring this turn.
type ReproductionTest interface {
	CanReproduce(w *World, a *Actor) bool
}

// EffortCalculator returns how many turns of progress act needs for a.
type EffortCalculator interface {
	Effort(w *World, a *Actor, act *ActionType) int
}

// LifepointHandler takes one lifepoint from a and returns what is left.
type LifepointHandler interface {
	Decrement(w *World, a *Actor) int
}

// AIStrategy queues a command for an actor that has none.
type AIStrategy interface {
	Decide(w *World, a *Actor)
}

// Hooks are the replaceable parts of the simulation. They are fixed when the
// World is built.
type Hooks struct {
	MapGen     MapGenerator
	Reproduce  ReproductionTest
	Effort     EffortCalculator
	Lifepoints LifepointHandler
	AI         AIStrategy
}

func (h *Hooks) applyDefaults(cfg Config) {
	if h.MapGen == nil {
		h.MapGen = DefaultMapGen{MaxDraws: cfg.MaxMapGenDraws}
	}
	if h.Reproduce == nil {
		h.Reproduce = DefaultReproduction{}
	}
	if h.Effort == nil {
		h.Effort = DefaultEffort{}
	}
	if h.Lifepoints == nil {
		h.Lifepoints = DefaultLifepoints{}
	}
	if h.AI == nil {
		h.AI = DefaultAI{}
	}
}

// Messenger receives the player-facing log lines.
type Messenger interface {
	Log(msg string)
}

type discardMessenger struct{}

func (discardMessenger) Log(string) {}

// TurnLogger is notified once per completed turn.
type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

type TurnLogEntry struct {
	Turn          int    `json:"turn"`
	PlayerCommand string `json:"player_command,omitempty"`
	Actors        int    `json:"actors"`
	Seed          uint32 `json:"seed"`
	Digest        string `json:"digest"`
}

// DefaultEffort charges the action template's effort.
type DefaultEffort struct{}

func (DefaultEffort) Effort(_ *World, _ *Actor, act *ActionType) int { return act.Effort }

// DefaultLifepoints kills the actor when its lifepoints run out.
type DefaultLifepoints struct{}

func (DefaultLifepoints) Decrement(w *World, a *Actor) int {
	if a.Lifepoints > 0 {
		a.Lifepoints--
	}
	if a.Lifepoints == 0 {
		w.Kill(a)
	}
	return a.Lifepoints
}

// DefaultReproduction: a type with proliferate score p reproduces with
// chance 1/p (always for p == 1) while the actor is near full health.
type DefaultReproduction struct{}

func (DefaultReproduction) CanReproduce(w *World, a *Actor) bool {
	t := w.types[a.Type]
	if t == nil || t.Proliferate == 0 {
		return false
	}
	if t.Lifepoints != 0 && 10*a.Lifepoints < 9*t.Lifepoints {
		return false
	}
	return t.Proliferate == 1 || int(w.rand.Next())%t.Proliferate == 1
}
