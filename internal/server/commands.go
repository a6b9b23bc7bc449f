package server

import (
	"errors"
	"math"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/plugins"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

func baseCommands() map[string]Command {
	return map[string]Command{
		protocol.VerbQuit:       {Argc: 0, Meta: true, Handler: cmdQuit},
		protocol.VerbPing:       {Argc: 0, Meta: true, Handler: cmdPing},
		protocol.VerbThingsHere: {Argc: 2, Meta: true, Handler: cmdThingsHere},

		protocol.VerbMakeWorld:      {Argc: 1, Handler: cmdMakeWorld},
		protocol.VerbSeedRandomness: {Argc: 1, Handler: cmdSeedRandomness},
		protocol.VerbTurn:           {Argc: 1, Handler: cmdTurn},
		protocol.VerbPlayerType:     {Argc: 1, Handler: cmdPlayerType},
		protocol.VerbMapLength:      {Argc: 1, Handler: cmdMapLength},
		protocol.VerbMap:            {Argc: 2, Handler: cmdMap},
		protocol.VerbWorldActive:    {Argc: 1, Handler: cmdWorldActive},

		protocol.VerbTAID:     {Argc: 1, Handler: cmdTAID},
		protocol.VerbTAEffort: {Argc: 1, Handler: cmdTAEffort},
		protocol.VerbTAName:   {Argc: 1, Handler: cmdTAName},

		protocol.VerbTTID:          {Argc: 1, Handler: cmdTTID},
		protocol.VerbTTName:        {Argc: 1, Handler: cmdTTName},
		protocol.VerbTTSymbol:      {Argc: 1, Handler: cmdTTSymbol},
		protocol.VerbTTLifepoints:  {Argc: 1, Handler: typeInt(0, 255, func(t *world.ActorType, v int) { t.Lifepoints = v })},
		protocol.VerbTTTool:        {Argc: 1, Handler: cmdTTTool},
		protocol.VerbTTToolPower:   {Argc: 1, Handler: typeInt(0, 65535, func(t *world.ActorType, v int) { t.ToolPower = v })},
		protocol.VerbTTStartNumber: {Argc: 1, Handler: typeInt(0, 255, func(t *world.ActorType, v int) { t.StartNumber = v })},
		protocol.VerbTTStorage:     {Argc: 1, Handler: typeInt(0, 255, func(t *world.ActorType, v int) { t.Storage = v })},
		protocol.VerbTTCorpseID:    {Argc: 1, Handler: cmdTTCorpseID},
		protocol.VerbTTProliferate: {Argc: 1, Handler: typeInt(0, 65535, func(t *world.ActorType, v int) { t.Proliferate = v })},

		protocol.VerbTID:          {Argc: 1, Handler: cmdTID},
		protocol.VerbTType:        {Argc: 1, Handler: cmdTType},
		protocol.VerbTPosY:        {Argc: 1, Handler: cmdTPosY},
		protocol.VerbTPosX:        {Argc: 1, Handler: cmdTPosX},
		protocol.VerbTLifepoints:  {Argc: 1, Handler: actorInt(0, 255, func(a *world.Actor, v int) { a.Lifepoints = v })},
		protocol.VerbTSatiation:   {Argc: 1, Handler: actorInt(math.MinInt16, math.MaxInt16, func(a *world.Actor, v int) { a.Satiation = v })},
		protocol.VerbTCommand:     {Argc: 1, Handler: cmdTCommand},
		protocol.VerbTArgument:    {Argc: 1, Handler: actorInt(0, 255, func(a *world.Actor, v int) { a.Argument = v })},
		protocol.VerbTProgress:    {Argc: 1, Handler: actorInt(0, 255, func(a *world.Actor, v int) { a.Progress = v })},
		protocol.VerbTCarries:     {Argc: 1, Handler: cmdTCarries},
		protocol.VerbTMemMap:      {Argc: 2, Handler: cmdTMemMap},
		protocol.VerbTMemDepthMap: {Argc: 2, Handler: cmdTMemDepthMap},
		protocol.VerbTMemThing:    {Argc: 3, Handler: cmdTMemThing},

		protocol.VerbWait:   {Argc: 0, Handler: playerAct(world.ActWait)},
		protocol.VerbMove:   {Argc: 1, Handler: cmdMove},
		protocol.VerbPickUp: {Argc: 0, Handler: playerAct(world.ActPickUp)},
		protocol.VerbDrop:   {Argc: 1, Handler: playerAct(world.ActDrop)},
		protocol.VerbUse:    {Argc: 1, Handler: playerAct(world.ActUse)},
		protocol.VerbAI:     {Argc: 0, Handler: cmdAI},
	}
}

func intArg(s string, min, max int64) (int, error) {
	v, err := protocol.ParseInt(s, min, max)
	return int(v), err
}

func (e *Engine) selectedAction() (*world.ActionType, error) {
	if e.hasAction {
		if a := e.w.Action(e.actionID); a != nil {
			return a, nil
		}
	}
	return nil, protocol.Errorf(protocol.ErrNoSelection, "no thing action selected")
}

func (e *Engine) selectedType() (*world.ActorType, error) {
	if e.hasType {
		if t := e.w.Type(e.typeID); t != nil {
			return t, nil
		}
	}
	return nil, protocol.Errorf(protocol.ErrNoSelection, "no thing type selected")
}

func (e *Engine) selectedActor() (*world.Actor, error) {
	if e.hasActor {
		if a := e.w.Actor(e.actorID); a != nil {
			return a, nil
		}
	}
	return nil, protocol.Errorf(protocol.ErrNoSelection, "no thing selected")
}

func typeInt(min, max int64, set func(t *world.ActorType, v int)) Handler {
	return func(e *Engine, args []string) error {
		t, err := e.selectedType()
		if err != nil {
			return err
		}
		v, err := intArg(args[0], min, max)
		if err != nil {
			return err
		}
		set(t, v)
		return nil
	}
}

func actorInt(min, max int64, set func(a *world.Actor, v int)) Handler {
	return func(e *Engine, args []string) error {
		a, err := e.selectedActor()
		if err != nil {
			return err
		}
		v, err := intArg(args[0], min, max)
		if err != nil {
			return err
		}
		set(a, v)
		return nil
	}
}

// fieldCommand is the setter verb of an extension field.
func fieldCommand(f world.FieldSpec) Command {
	min, max := int64(f.Min), int64(f.Max)
	if f.Scope == world.ScopeType {
		return Command{Argc: 1, Handler: typeInt(min, max, func(t *world.ActorType, v int) { t.Extra[f.Name] = v })}
	}
	return Command{Argc: 1, Handler: actorInt(min, max, func(a *world.Actor, v int) { a.Extra[f.Name] = v })}
}

func pluginCommand(v plugins.Verb) Command {
	return Command{Argc: v.Argc, Meta: v.Meta, Handler: func(e *Engine, args []string) error {
		return v.Handler(e.w, func(line string) { _ = e.send(line) }, args)
	}}
}

func cmdQuit(e *Engine, _ []string) error {
	if err := e.Flush(); err != nil {
		return err
	}
	return ErrQuit
}

func cmdPing(e *Engine, _ []string) error {
	return e.send(protocol.MsgPong)
}

func cmdThingsHere(e *Engine, args []string) error {
	y, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	x, err := intArg(args[1], 0, 255)
	if err != nil {
		return err
	}
	lines, err := e.w.ThingsHere(y, x)
	if err != nil {
		return err
	}
	if err := e.send(protocol.MsgThingsStart); err != nil {
		return err
	}
	for _, l := range lines {
		if err := e.send(l); err != nil {
			return err
		}
	}
	return e.send(protocol.MsgThingsEnd)
}

func cmdMakeWorld(e *Engine, args []string) error {
	seed, err := intArg(args[0], 0, math.MaxUint32)
	if err != nil {
		return err
	}
	if err := e.w.MakeWorld(uint32(seed)); err != nil {
		return err
	}
	return e.send(protocol.MsgNewWorld)
}

func cmdSeedRandomness(e *Engine, args []string) error {
	seed, err := intArg(args[0], 0, math.MaxUint32)
	if err != nil {
		return err
	}
	e.w.Rand().SetSeed(uint32(seed))
	return nil
}

func cmdTurn(e *Engine, args []string) error {
	turn, err := intArg(args[0], 0, math.MaxUint32)
	if err != nil {
		return err
	}
	e.w.SetTurn(turn)
	return nil
}

func cmdPlayerType(e *Engine, args []string) error {
	id, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetPlayerType(id)
}

func cmdMapLength(e *Engine, args []string) error {
	n, err := intArg(args[0], 1, 256)
	if err != nil {
		return err
	}
	return e.w.SetMapLength(n)
}

func cmdMap(e *Engine, args []string) error {
	y, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetMapRow(y, args[1])
}

func cmdWorldActive(e *Engine, args []string) error {
	v, err := intArg(args[0], 0, 1)
	if err != nil {
		return err
	}
	if v == 0 {
		e.w.Deactivate()
		if e.exporter != nil {
			return e.exporter.Withdraw()
		}
		return nil
	}
	if e.w.Active() {
		return nil
	}
	return e.w.Activate()
}

func cmdTAID(e *Engine, args []string) error {
	id, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	a := e.w.EnsureActionType(id)
	e.actionID, e.hasAction = a.ID, true
	return nil
}

func cmdTAEffort(e *Engine, args []string) error {
	a, err := e.selectedAction()
	if err != nil {
		return err
	}
	v, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	a.Effort = v
	return nil
}

func cmdTAName(e *Engine, args []string) error {
	a, err := e.selectedAction()
	if err != nil {
		return err
	}
	return e.w.RenameAction(a, args[0])
}

func cmdTTID(e *Engine, args []string) error {
	id, err := intArg(args[0], -1, 255)
	if err != nil {
		return err
	}
	t := e.w.EnsureActorType(id)
	e.typeID, e.hasType = t.ID, true
	return nil
}

func cmdTTName(e *Engine, args []string) error {
	t, err := e.selectedType()
	if err != nil {
		return err
	}
	t.Name = args[0]
	return nil
}

func cmdTTSymbol(e *Engine, args []string) error {
	t, err := e.selectedType()
	if err != nil {
		return err
	}
	if len(args[0]) != 1 {
		return protocol.Errorf(protocol.ErrOutOfRange, "symbol must be a single character")
	}
	t.Symbol = args[0][0]
	return nil
}

func cmdTTTool(e *Engine, args []string) error {
	t, err := e.selectedType()
	if err != nil {
		return err
	}
	if !world.ValidTool(args[0]) {
		return protocol.Errorf(protocol.ErrOutOfRange, "invalid tool %q", args[0])
	}
	t.Tool = args[0]
	return nil
}

func cmdTTCorpseID(e *Engine, args []string) error {
	t, err := e.selectedType()
	if err != nil {
		return err
	}
	id, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetCorpse(t, id)
}

func cmdTID(e *Engine, args []string) error {
	id, err := intArg(args[0], -1, math.MaxInt32)
	if err != nil {
		return err
	}
	a, err := e.w.EnsureActor(id)
	if err != nil {
		return err
	}
	e.actorID, e.hasActor = a.ID, true
	return nil
}

func cmdTType(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	id, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetActorType(a, id)
}

func cmdTPosY(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	y, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetPosition(a, y, a.X)
}

func cmdTPosX(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	x, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetPosition(a, a.Y, x)
}

func cmdTCommand(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	id, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetCommand(a, id)
}

func cmdTCarries(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	id, err := intArg(args[0], 0, math.MaxInt32)
	if err != nil {
		return err
	}
	return e.w.Carry(a, id)
}

func cmdTMemMap(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	y, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetMemoryRow(a, y, args[1])
}

func cmdTMemDepthMap(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	y, err := intArg(args[0], 0, 255)
	if err != nil {
		return err
	}
	return e.w.SetDepthRow(a, y, args[1])
}

func cmdTMemThing(e *Engine, args []string) error {
	a, err := e.selectedActor()
	if err != nil {
		return err
	}
	var v [3]int
	for i := range v {
		if v[i], err = intArg(args[i], 0, 255); err != nil {
			return err
		}
	}
	return e.w.AddSighting(a, v[0], v[1], v[2])
}

func playerAct(name string) Handler {
	return func(e *Engine, args []string) error {
		arg := 0
		if len(args) > 0 {
			v, err := intArg(args[0], 0, 255)
			if err != nil {
				return err
			}
			arg = v
		}
		return e.w.PlayerAct(name, arg)
	}
}

func cmdMove(e *Engine, args []string) error {
	d, ok := grid.ParseName(args[0])
	if !ok {
		return protocol.Errorf(protocol.ErrOutOfRange, "unknown direction %q", args[0])
	}
	return e.w.PlayerAct(world.ActMove, int(d))
}

func cmdAI(e *Engine, _ []string) error {
	return e.w.PlayerAI()
}

// IsFatal reports whether err from Obey should end the process.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrQuit)
}
