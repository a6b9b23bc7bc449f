package world

import (
	"errors"
	"sort"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/rng"
)

// Action names. An action template may only carry one of these.
const (
	ActWait   = "wait"
	ActMove   = "move"
	ActPickUp = "pick_up"
	ActDrop   = "drop"
	ActUse    = "use"
)

// Tool classifications.
const (
	ToolNone  = ""
	ToolFood  = "food"
	ToolOther = "other"
)

const (
	DefaultMapLength = 64
	PlayerID         = 0
)

// ErrExhausted is returned when map generation or free-cell search runs out
// of attempts. It is not recoverable.
var ErrExhausted = errors.New("world: attempts exhausted")

func ValidActionName(name string) bool {
	switch name {
	case ActWait, ActMove, ActPickUp, ActDrop, ActUse:
		return true
	}
	return false
}

func ValidTool(tool string) bool {
	return tool == ToolNone || tool == ToolFood || tool == ToolOther
}

type ActorType struct {
	ID          int
	Name        string
	Symbol      byte
	Lifepoints  int
	Tool        string
	ToolPower   int
	StartNumber int
	Storage     int
	CorpseID    int
	Proliferate int
	Extra       map[string]int
}

type ActionType struct {
	ID     int
	Name   string
	Effort int
}

// Actor is a live entity. Carried actors have no position of their own; they
// move with their carrier.
type Actor struct {
	ID         int
	Type       int
	Y          int
	X          int
	Lifepoints int
	Satiation  int
	Command    int
	Argument   int
	Progress   int
	Carries    []int
	Carried    bool

	// Only kept for living actors (the player keeps Visible after death).
	Visible   []byte
	MemMap    []byte
	MemDepth  []byte
	MemThings []memmap.Sighting

	Extra map[string]int
}

func (a *Actor) Alive() bool { return a.Lifepoints > 0 }

// World is the single-threaded authoritative simulation. Every mutation
// happens synchronously on the caller's goroutine.
type World struct {
	cfg   Config
	hooks Hooks
	rand  *rng.Source

	msg        Messenger
	turnLogger TurnLogger

	turn       int
	active     bool
	length     int
	cells      []byte
	playerType int

	types   map[int]*ActorType
	actions map[int]*ActionType
	actors  []*Actor // ascending ID
	fields  []FieldSpec

	worldstateDue bool
	lastPlayerCmd string
}

func New(cfg Config, hooks Hooks) *World {
	cfg.applyDefaults()
	hooks.applyDefaults(cfg)
	return &World{
		cfg:     cfg,
		hooks:   hooks,
		rand:    rng.New(0),
		msg:     discardMessenger{},
		length:  DefaultMapLength,
		types:   map[int]*ActorType{},
		actions: map[int]*ActionType{},
	}
}

func (w *World) SetMessenger(m Messenger) {
	if m == nil {
		m = discardMessenger{}
	}
	w.msg = m
}

func (w *World) SetTurnLogger(l TurnLogger) { w.turnLogger = l }

func (w *World) Config() Config            { return w.cfg }
func (w *World) Rand() *rng.Source         { return w.rand }
func (w *World) Turn() int                 { return w.turn }
func (w *World) SetTurn(t int)             { w.turn = t }
func (w *World) Active() bool              { return w.active }
func (w *World) MapLength() int            { return w.length }
func (w *World) Cells() []byte             { return w.cells }
func (w *World) PlayerType() int           { return w.playerType }
func (w *World) Fields() []FieldSpec       { return w.fields }
func (w *World) WorldstateDue() bool       { return w.worldstateDue }
func (w *World) MarkWorldstateDue()        { w.worldstateDue = w.active }
func (w *World) ClearWorldstateDue()       { w.worldstateDue = false }
func (w *World) Type(id int) *ActorType    { return w.types[id] }
func (w *World) Action(id int) *ActionType { return w.actions[id] }

func (w *World) SetPlayerType(id int) error {
	if w.types[id] == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no thing type %d", id)
	}
	w.playerType = id
	return nil
}

func (w *World) Player() *Actor { return w.Actor(PlayerID) }

// Actor returns the actor with the given id, or nil.
func (w *World) Actor(id int) *Actor {
	i := sort.Search(len(w.actors), func(i int) bool { return w.actors[i].ID >= id })
	if i < len(w.actors) && w.actors[i].ID == id {
		return w.actors[i]
	}
	return nil
}

// Actors returns the live actors in ascending id order. The slice must not be
// modified.
func (w *World) Actors() []*Actor { return w.actors }

func (w *World) TypeIDs() []int   { return sortedKeys(w.types) }
func (w *World) ActionIDs() []int { return sortedKeys(w.actions) }

func sortedKeys[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ActionByName returns the lowest-id action template called name.
func (w *World) ActionByName(name string) *ActionType {
	for _, id := range w.ActionIDs() {
		if a := w.actions[id]; a.Name == name {
			return a
		}
	}
	return nil
}

// lowestFree returns the lowest id >= start for which used is false.
func lowestFree(start int, used func(int) bool) int {
	id := start
	for used(id) {
		id++
	}
	return id
}

// EnsureActionType selects or creates the action template id. id 0 allocates
// the lowest unused id >= 1.
func (w *World) EnsureActionType(id int) *ActionType {
	if id <= 0 {
		id = lowestFree(1, func(i int) bool { return w.actions[i] != nil })
	}
	if a := w.actions[id]; a != nil {
		return a
	}
	a := &ActionType{ID: id, Name: ActWait, Effort: 1}
	w.actions[id] = a
	return a
}

// RenameAction validates and applies a new action name. Losing the last wait
// action deactivates the world.
func (w *World) RenameAction(a *ActionType, name string) error {
	if !ValidActionName(name) {
		return protocol.Errorf(protocol.ErrOutOfRange, "invalid action name %q", name)
	}
	a.Name = name
	if w.active && w.ActionByName(ActWait) == nil {
		w.Deactivate()
	}
	return nil
}

// EnsureActorType selects or creates the type template id. A negative id
// allocates the lowest unused id >= 0.
func (w *World) EnsureActorType(id int) *ActorType {
	if id < 0 {
		id = lowestFree(0, func(i int) bool { return w.types[i] != nil })
	}
	if t := w.types[id]; t != nil {
		return t
	}
	t := &ActorType{ID: id, Name: "(none)", Symbol: '?', CorpseID: id}
	t.Extra = w.fieldDefaults(ScopeType)
	w.types[id] = t
	return t
}

// EnsureActor selects or creates actor id. A negative id allocates the lowest
// unused id >= 0. New actors take the lowest type id and start at (0, 0).
func (w *World) EnsureActor(id int) (*Actor, error) {
	if id >= 0 {
		if a := w.Actor(id); a != nil {
			return a, nil
		}
	}
	typeIDs := w.TypeIDs()
	if len(typeIDs) == 0 {
		return nil, protocol.Errorf(protocol.ErrPrecondition, "no thing type to settle a new thing in")
	}
	if id < 0 {
		id = w.nextActorID()
	}
	return w.spawn(id, typeIDs[0], 0, 0), nil
}

func (w *World) nextActorID() int {
	return lowestFree(0, func(i int) bool { return w.Actor(i) != nil })
}

// spawn inserts a fresh actor of type typeID at (y, x).
func (w *World) spawn(id, typeID, y, x int) *Actor {
	t := w.types[typeID]
	a := &Actor{ID: id, Type: typeID, Y: y, X: x}
	if t != nil {
		a.Lifepoints = t.Lifepoints
	}
	a.Extra = w.fieldDefaults(ScopeActor)
	if w.active && a.Alive() {
		w.buildVisibility(a)
	}
	w.insertActor(a)
	return a
}

func (w *World) insertActor(a *Actor) {
	i := sort.Search(len(w.actors), func(i int) bool { return w.actors[i].ID >= a.ID })
	w.actors = append(w.actors, nil)
	copy(w.actors[i+1:], w.actors[i:])
	w.actors[i] = a
}

func (w *World) removeActor(id int) {
	i := sort.Search(len(w.actors), func(i int) bool { return w.actors[i].ID >= id })
	if i < len(w.actors) && w.actors[i].ID == id {
		w.actors = append(w.actors[:i], w.actors[i+1:]...)
	}
}

// SetActorType switches a's template.
func (w *World) SetActorType(a *Actor, typeID int) error {
	if w.types[typeID] == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no thing type %d", typeID)
	}
	a.Type = typeID
	return nil
}

// SetCorpse points type t's corpse at another existing type.
func (w *World) SetCorpse(t *ActorType, corpseID int) error {
	if w.types[corpseID] == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no thing type %d", corpseID)
	}
	t.CorpseID = corpseID
	return nil
}

// SetCommand queues action id (0 clears) on a.
func (w *World) SetCommand(a *Actor, actionID int) error {
	if actionID != 0 && w.actions[actionID] == nil {
		return protocol.Errorf(protocol.ErrPrecondition, "no thing action %d", actionID)
	}
	a.Command = actionID
	return nil
}

// SetPosition moves a (and whatever it carries) to (y, x).
func (w *World) SetPosition(a *Actor, y, x int) error {
	if y < 0 || x < 0 || y >= w.length || x >= w.length {
		return protocol.Errorf(protocol.ErrOutOfRange, "position %d,%d outside of map", y, x)
	}
	if a.Carried {
		return protocol.Errorf(protocol.ErrPrecondition, "thing %d is carried and moves with its carrier", a.ID)
	}
	w.place(a, y, x)
	if w.active && a.Alive() {
		w.buildVisibility(a)
	}
	return nil
}

func (w *World) place(a *Actor, y, x int) {
	a.Y, a.X = y, x
	for _, id := range a.Carries {
		if c := w.Actor(id); c != nil {
			w.place(c, y, x)
		}
	}
}

// Carry makes carrier hold actor id. Only inanimate things can be carried,
// and never one that already holds the carrier, directly or further up.
func (w *World) Carry(carrier *Actor, id int) error {
	item := w.Actor(id)
	if item == nil || id == carrier.ID || item.Carried || item.Alive() {
		return protocol.Errorf(protocol.ErrPrecondition, "thing %d not available for carrying", id)
	}
	for c := w.carrierOf(carrier.ID); c != nil; c = w.carrierOf(c.ID) {
		if c.ID == id {
			return protocol.Errorf(protocol.ErrPrecondition, "thing %d already carries thing %d", id, carrier.ID)
		}
	}
	item.Carried = true
	carrier.Carries = append(carrier.Carries, id)
	w.place(item, carrier.Y, carrier.X)
	return nil
}

// carrierOf returns the actor whose inventory holds id, or nil.
func (w *World) carrierOf(id int) *Actor {
	for _, a := range w.actors {
		for _, c := range a.Carries {
			if c == id {
				return a
			}
		}
	}
	return nil
}

// release drops slot i of a's inventory at a's position.
func (w *World) release(a *Actor, slot int) *Actor {
	id := a.Carries[slot]
	a.Carries = append(a.Carries[:slot:slot], a.Carries[slot+1:]...)
	item := w.Actor(id)
	if item != nil {
		item.Carried = false
		w.place(item, a.Y, a.X)
	}
	return item
}

// AddSighting records a remembered object for a.
func (w *World) AddSighting(a *Actor, typeID, y, x int) error {
	if w.types[typeID] == nil || y < 0 || x < 0 || y >= w.length || x >= w.length {
		return protocol.Errorf(protocol.ErrOutOfRange, "illegal thing type or position")
	}
	a.MemThings = append(a.MemThings, memmap.Sighting{Type: typeID, Y: y, X: x})
	return nil
}

func (w *World) passable(c byte) bool { return containsByte(w.cfg.Passable, c) }
func (w *World) hides(c byte) bool    { return containsByte(w.cfg.Hiding, c) }

func containsByte(set string, c byte) bool {
	for i := 0; i < len(set); i++ {
		if set[i] == c {
			return true
		}
	}
	return false
}
