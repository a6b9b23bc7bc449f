package world

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/fov"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/grid"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/memmap"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/rng"
)

type logRecorder struct{ lines []string }

func (r *logRecorder) Log(msg string) { r.lines = append(r.lines, msg) }

func (r *logRecorder) has(msg string) bool {
	for _, l := range r.lines {
		if l == msg {
			return true
		}
	}
	return false
}

type flatMap struct{ c byte }

func (g flatMap) Generate(length int, _ *rng.Source) ([]byte, error) {
	return bytes.Repeat([]byte{g.c}, length*length), nil
}

const (
	typeHuman = 0
	typeBeast = 1
	typeMeat  = 2
)

// newTestWorld builds an inactive world on an open map with the five
// actions (ids 1..5 in wait, move, pick_up, drop, use order) and three
// types: a 10-lifepoint human, a 2-lifepoint beast whose corpse is meat, and
// meat as food with power 100.
func newTestWorld(t *testing.T, cfg Config, length int) (*World, *logRecorder) {
	t.Helper()
	w := New(cfg, Hooks{MapGen: flatMap{'.'}})
	rec := &logRecorder{}
	w.SetMessenger(rec)
	if err := w.SetMapLength(length); err != nil {
		t.Fatalf("SetMapLength: %v", err)
	}
	for y := 0; y < length; y++ {
		if err := w.SetMapRow(y, strings.Repeat(".", length)); err != nil {
			t.Fatalf("SetMapRow: %v", err)
		}
	}
	for _, name := range []string{ActWait, ActMove, ActPickUp, ActDrop, ActUse} {
		if err := w.RenameAction(w.EnsureActionType(0), name); err != nil {
			t.Fatalf("RenameAction: %v", err)
		}
	}
	human := w.EnsureActorType(typeHuman)
	human.Name, human.Symbol, human.Lifepoints, human.Storage = "human", '@', 10, 3
	beast := w.EnsureActorType(typeBeast)
	beast.Name, beast.Symbol, beast.Lifepoints = "beast", 'b', 2
	meat := w.EnsureActorType(typeMeat)
	meat.Name, meat.Symbol, meat.Tool, meat.ToolPower = "meat", 'm', ToolFood, 100
	beast.CorpseID = typeMeat
	human.CorpseID = typeMeat
	return w, rec
}

func addActor(t *testing.T, w *World, typeID, y, x int) *Actor {
	t.Helper()
	a, err := w.EnsureActor(-1)
	if err != nil {
		t.Fatalf("EnsureActor: %v", err)
	}
	if err := w.SetActorType(a, typeID); err != nil {
		t.Fatalf("SetActorType: %v", err)
	}
	a.Lifepoints = w.Type(typeID).Lifepoints
	if err := w.SetPosition(a, y, x); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	return a
}

func activate(t *testing.T, w *World) {
	t.Helper()
	if err := w.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
}

func checkCarryInvariant(t *testing.T, w *World) {
	t.Helper()
	holders := map[int]int{}
	for _, a := range w.Actors() {
		for _, id := range a.Carries {
			if w.Actor(id) == nil {
				t.Fatalf("actor %d carries missing actor %d", a.ID, id)
			}
			holders[id]++
		}
	}
	for _, a := range w.Actors() {
		if holders[a.ID] > 1 {
			t.Fatalf("actor %d carried %d times", a.ID, holders[a.ID])
		}
		if a.Carried != (holders[a.ID] == 1) {
			t.Fatalf("actor %d: carried=%v holders=%d", a.ID, a.Carried, holders[a.ID])
		}
	}
}

func TestWaitAdvancesOneTurn(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	w.Type(typeHuman).StartNumber = 1
	if err := w.SetPlayerType(typeHuman); err != nil {
		t.Fatalf("SetPlayerType: %v", err)
	}
	if err := w.MakeWorld(7); err != nil {
		t.Fatalf("MakeWorld: %v", err)
	}
	if w.Turn() != 1 {
		t.Fatalf("turn after MakeWorld: got=%d want=1", w.Turn())
	}
	// Seed 1 keeps the first hunger draw far above the satiation deficit.
	w.Rand().SetSeed(1)
	if err := w.PlayerAct(ActWait, 0); err != nil {
		t.Fatalf("PlayerAct: %v", err)
	}
	if w.Turn() != 2 {
		t.Fatalf("turn: got=%d want=2", w.Turn())
	}
	if lp := w.Player().Lifepoints; lp != 10 {
		t.Fatalf("lifepoints: got=%d want=10", lp)
	}
	if !rec.has("You WAIT.") {
		t.Fatalf("missing wait log: %q", rec.lines)
	}
}

func TestStepWithoutCommandKeepsTurn(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	addActor(t, w, typeHuman, 2, 2)
	activate(t, w)
	w.SetTurn(4)
	for i := 0; i < 3; i++ {
		w.Step()
	}
	if w.Turn() != 4 {
		t.Fatalf("turn advanced without a player command: got=%d", w.Turn())
	}
}

func TestMoveIntoHostileAttacks(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	// A zero-lifepoint template keeps the hostile from healing or starving.
	w.EnsureActorType(3).Name = "hostile"
	hostile := addActor(t, w, 3, 2, 3)
	hostile.Lifepoints = 3
	activate(t, w)
	w.Rand().SetSeed(1)
	if err := w.PlayerAct(ActMove, int(grid.East)); err != nil {
		t.Fatalf("PlayerAct: %v", err)
	}
	if hostile.Lifepoints != 2 {
		t.Fatalf("hostile lifepoints: got=%d want=2", hostile.Lifepoints)
	}
	if player.Y != 2 || player.X != 2 {
		t.Fatalf("player moved to %d,%d", player.Y, player.X)
	}
	if !rec.has("You WOUND hostile.") {
		t.Fatalf("missing wound log: %q", rec.lines)
	}
}

func TestMoveRelocatesAndRebuildsView(t *testing.T) {
	w, rec := newTestWorld(t, Config{ViewRadius: 1}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	activate(t, w)
	w.Rand().SetSeed(1)
	if err := w.PlayerAct(ActMove, int(grid.West)); err != nil {
		t.Fatalf("PlayerAct: %v", err)
	}
	if player.Y != 2 || player.X != 1 {
		t.Fatalf("player at %d,%d want 2,1", player.Y, player.X)
	}
	if player.Visible[2*5+0] != fov.Seen || player.Visible[2*5+3] != fov.Unseen {
		t.Fatalf("view not rebuilt around new position")
	}
	if !rec.has("You MOVE west.") {
		t.Fatalf("missing move log: %q", rec.lines)
	}
}

func TestMoveOffMapFails(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 3)
	player := addActor(t, w, typeHuman, 0, 0)
	activate(t, w)
	w.Rand().SetSeed(1)
	if err := w.PlayerAct(ActMove, int(grid.West)); err != nil {
		t.Fatalf("PlayerAct: %v", err)
	}
	if player.Y != 0 || player.X != 0 {
		t.Fatalf("player left the map")
	}
	if !rec.has("You CAN'T move west.") {
		t.Fatalf("missing failure log: %q", rec.lines)
	}
}

func TestPickUpWithoutStorage(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	w.Type(typeHuman).Storage = 0
	player := addActor(t, w, typeHuman, 2, 2)
	item := addActor(t, w, typeMeat, 2, 2)
	activate(t, w)
	w.Rand().SetSeed(1)
	if err := w.PlayerAct(ActPickUp, 0); err != nil {
		t.Fatalf("PlayerAct: %v", err)
	}
	if item.Carried || len(player.Carries) != 0 {
		t.Fatalf("item picked up without storage")
	}
	if !rec.has("CAN'T pick up: No storage room to carry more.") {
		t.Fatalf("missing diagnostic: %q", rec.lines)
	}
}

func TestPickUpDropAndEat(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	meat := addActor(t, w, typeMeat, 2, 2)
	activate(t, w)
	w.Rand().SetSeed(1)

	if err := w.PlayerAct(ActPickUp, 0); err != nil {
		t.Fatalf("pick up: %v", err)
	}
	if !meat.Carried || len(player.Carries) != 1 || player.Carries[0] != meat.ID {
		t.Fatalf("pick up failed: carries=%v", player.Carries)
	}
	checkCarryInvariant(t, w)

	if err := w.PlayerAct(ActDrop, 0); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if meat.Carried || len(player.Carries) != 0 || meat.Y != 2 || meat.X != 2 {
		t.Fatalf("drop failed")
	}
	if !rec.has("You DROP meat.") {
		t.Fatalf("missing drop log: %q", rec.lines)
	}

	if err := w.PlayerAct(ActPickUp, 0); err != nil {
		t.Fatalf("pick up again: %v", err)
	}
	before := player.Satiation
	if err := w.PlayerAct(ActUse, 0); err != nil {
		t.Fatalf("use: %v", err)
	}
	if w.Actor(meat.ID) != nil {
		t.Fatalf("eaten item still exists")
	}
	// Eating adds 100; the turn's hunger takes floor(sqrt(10)) = 3.
	if want := before - 3 + 100; player.Satiation != want {
		t.Fatalf("satiation: got=%d want=%d", player.Satiation, want)
	}
	if !rec.has("You EAT.") {
		t.Fatalf("missing eat log: %q", rec.lines)
	}
	checkCarryInvariant(t, w)
}

func TestPlayerActRefusals(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	var pe *protocol.Error
	if err := w.PlayerAct(ActWait, 0); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("inactive world: got %v", err)
	}
	activate(t, w)
	if err := w.PlayerAct(ActDrop, 0); !errors.As(err, &pe) {
		t.Fatalf("drop with empty inventory accepted")
	}
	if !rec.has("You have NOTHING to drop in your inventory.") {
		t.Fatalf("missing empty inventory log: %q", rec.lines)
	}
	w.Kill(player)
	if err := w.PlayerAct(ActWait, 0); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("dead player: got %v", err)
	}
}

func TestKill(t *testing.T) {
	w, rec := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 1, 1)
	beast := addActor(t, w, typeBeast, 3, 3)
	item := addActor(t, w, typeMeat, 0, 0)
	activate(t, w)
	w.updateMemory(beast, false)
	if err := w.Carry(beast, item.ID); err != nil {
		t.Fatalf("Carry: %v", err)
	}
	if item.Y != 3 || item.X != 3 {
		t.Fatalf("carried item not moved to carrier")
	}

	w.Kill(beast)
	if beast.Type != typeMeat || beast.Lifepoints != 0 {
		t.Fatalf("beast not turned into its corpse: type=%d", beast.Type)
	}
	if item.Carried || len(beast.Carries) != 0 {
		t.Fatalf("carried item not released")
	}
	if beast.Visible != nil || beast.MemMap != nil || beast.MemDepth != nil || beast.MemThings != nil {
		t.Fatalf("dead actor kept its view or memory")
	}
	checkCarryInvariant(t, w)

	w.Kill(player)
	if string(player.Visible) != string(fov.Blank(5)) {
		t.Fatalf("dead player view not blanked")
	}
	if player.MemMap == nil {
		t.Fatalf("dead player lost memory")
	}
	if !rec.has("You die.") {
		t.Fatalf("missing death log")
	}
}

func TestCarryRefusals(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	beast := addActor(t, w, typeBeast, 1, 1)
	box := addActor(t, w, typeMeat, 0, 0)
	bag := addActor(t, w, typeMeat, 4, 4)

	var pe *protocol.Error
	for _, id := range []int{player.ID, beast.ID} {
		if err := w.Carry(box, id); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
			t.Fatalf("carrying living actor %d: got %v", id, err)
		}
	}
	if len(box.Carries) != 0 || player.Carried || beast.Carried {
		t.Fatalf("refused carry changed state")
	}

	if err := w.Carry(box, bag.ID); err != nil {
		t.Fatalf("Carry: %v", err)
	}
	if err := w.Carry(bag, box.ID); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("two-thing cycle: got %v", err)
	}
	if err := w.Carry(bag, bag.ID); !errors.As(err, &pe) {
		t.Fatalf("self carry accepted")
	}
	if err := w.Carry(player, box.ID); err != nil {
		t.Fatalf("Carry: %v", err)
	}
	// bag sits two levels below player, so a lifeless player is still refused.
	player.Lifepoints = 0
	if err := w.Carry(bag, player.ID); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("deep cycle: got %v", err)
	}
	if len(bag.Carries) != 0 || player.Carried {
		t.Fatalf("refused cycle changed state")
	}
	if err := w.SetPosition(player, 3, 3); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if box.Y != 3 || box.X != 3 || bag.Y != 3 || bag.X != 3 {
		t.Fatalf("nested items not moved: box=(%d,%d) bag=(%d,%d)", box.Y, box.X, bag.Y, bag.X)
	}
	checkCarryInvariant(t, w)
}

func TestSetPositionRefusesCarried(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	player := addActor(t, w, typeHuman, 2, 2)
	meat := addActor(t, w, typeMeat, 0, 0)
	if err := w.Carry(player, meat.ID); err != nil {
		t.Fatalf("Carry: %v", err)
	}
	var pe *protocol.Error
	if err := w.SetPosition(meat, 4, 4); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("moving carried item: got %v", err)
	}
	if meat.Y != 2 || meat.X != 2 {
		t.Fatalf("carried item left its carrier: (%d,%d)", meat.Y, meat.X)
	}
	if err := w.SetPosition(player, 1, 3); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if meat.Y != 1 || meat.X != 3 {
		t.Fatalf("carried item did not follow: (%d,%d)", meat.Y, meat.X)
	}
}

func TestReproduceAvoidsOccupiedCells(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	plant := w.EnsureActorType(3)
	plant.Name, plant.Proliferate = "plant", 1
	addActor(t, w, typeHuman, 0, 0)
	mother := addActor(t, w, 3, 2, 2)
	activate(t, w)

	occ := w.occupancy()
	for _, d := range grid.Directions {
		if d == grid.SouthWest {
			continue
		}
		y, x, _ := grid.Step(2, 2, d, 5)
		occ[y*5+x] = true
	}
	w.reproduce(mother, occ)
	var child *Actor
	for _, a := range w.Actors() {
		if a.Type == 3 && a != mother {
			child = a
		}
	}
	if child == nil {
		t.Fatalf("no offspring")
	}
	if wy, wx, _ := grid.Step(2, 2, grid.SouthWest, 5); child.Y != wy || child.X != wx {
		t.Fatalf("offspring at %d,%d want %d,%d", child.Y, child.X, wy, wx)
	}
	n := len(w.Actors())
	w.reproduce(mother, occ)
	if len(w.Actors()) != n {
		t.Fatalf("offspring placed on an occupied cell")
	}
}

func TestDefaultReproductionHealthGate(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	w.Type(typeBeast).Proliferate = 1
	b := addActor(t, w, typeBeast, 2, 2)
	w.Type(typeBeast).Lifepoints = 20
	b.Lifepoints = 17
	if (DefaultReproduction{}).CanReproduce(w, b) {
		t.Fatalf("reproduced below 90%% health")
	}
	b.Lifepoints = 18
	if !(DefaultReproduction{}).CanReproduce(w, b) {
		t.Fatalf("did not reproduce at 90%% health")
	}
}

func TestSimulationKeepsInvariants(t *testing.T) {
	w, _ := newTestWorld(t, Config{ViewRadius: 4}, 12)
	w.Type(typeHuman).StartNumber = 1
	w.Type(typeBeast).StartNumber = 6
	w.Type(typeBeast).Storage = 1
	w.Type(typeMeat).StartNumber = 8
	plant := w.EnsureActorType(3)
	plant.Name, plant.Symbol, plant.Tool, plant.ToolPower = "plant", 'p', ToolFood, 40
	plant.StartNumber = 3
	if err := w.SetPlayerType(typeHuman); err != nil {
		t.Fatalf("SetPlayerType: %v", err)
	}
	if err := w.MakeWorld(12345); err != nil {
		t.Fatalf("MakeWorld: %v", err)
	}
	player := w.Player()
	if player.Type != typeHuman {
		t.Fatalf("actor 0 is not of the player type")
	}
	last := w.Turn()
	for i := 0; i < 150 && player.Alive(); i++ {
		if err := w.PlayerAI(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if w.Turn() <= last && player.Alive() {
			t.Fatalf("step %d: turn did not advance (%d)", i, w.Turn())
		}
		last = w.Turn()
		checkCarryInvariant(t, w)
		for pos, c := range player.MemDepth {
			if !memmap.ValidDepth(c) {
				t.Fatalf("step %d: depth[%d]=%q", i, pos, c)
			}
			if player.Alive() && player.Visible[pos] == fov.Seen && c != memmap.Fresh {
				t.Fatalf("step %d: visible cell %d has depth %q", i, pos, c)
			}
		}
		for _, a := range w.Actors() {
			if a.Lifepoints < 0 || a.Satiation < satiationMin || a.Satiation > satiationMax {
				t.Fatalf("step %d: actor %d out of range: lp=%d sat=%d", i, a.ID, a.Lifepoints, a.Satiation)
			}
		}
	}
}

func TestMakeWorldPreconditions(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	var pe *protocol.Error
	if err := w.MakeWorld(1); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("no start number: got %v", err)
	}
	w.Type(typeHuman).StartNumber = 1
	if err := w.RenameAction(w.Action(1), ActMove); err != nil {
		t.Fatalf("RenameAction: %v", err)
	}
	if err := w.MakeWorld(1); !errors.As(err, &pe) || pe.Code != protocol.ErrPrecondition {
		t.Fatalf("no wait action: got %v", err)
	}
}

func TestMakeWorldExhaustsOnWater(t *testing.T) {
	w := New(Config{MaxFreeCellDraws: 500}, Hooks{MapGen: flatMap{'~'}})
	w.EnsureActorType(0).StartNumber = 1
	w.EnsureActionType(0)
	err := w.MakeWorld(3)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestRenameLastWaitDeactivates(t *testing.T) {
	w, _ := newTestWorld(t, Config{}, 5)
	addActor(t, w, typeHuman, 2, 2)
	activate(t, w)
	if err := w.RenameAction(w.Action(1), "fly"); err == nil {
		t.Fatalf("accepted invalid action name")
	}
	if !w.Active() {
		t.Fatalf("rejected rename deactivated the world")
	}
	if err := w.RenameAction(w.Action(1), ActUse); err != nil {
		t.Fatalf("RenameAction: %v", err)
	}
	if w.Active() {
		t.Fatalf("world still active without a wait action")
	}
}

func TestIDAllocation(t *testing.T) {
	w := New(Config{}, Hooks{})
	if a := w.EnsureActionType(0); a.ID != 1 || a.Name != ActWait || a.Effort != 1 {
		t.Fatalf("first action: %+v", a)
	}
	if a := w.EnsureActionType(0); a.ID != 2 {
		t.Fatalf("second action id: got=%d want=2", a.ID)
	}
	if tt := w.EnsureActorType(-1); tt.ID != 0 || tt.Name != "(none)" || tt.Symbol != '?' || tt.CorpseID != 0 {
		t.Fatalf("first type: %+v", tt)
	}
	w.EnsureActorType(2)
	if tt := w.EnsureActorType(-1); tt.ID != 1 {
		t.Fatalf("gap not reused: got=%d want=1", tt.ID)
	}
	a, err := w.EnsureActor(5)
	if err != nil || a.ID != 5 || a.Type != 0 {
		t.Fatalf("explicit actor: %+v %v", a, err)
	}
	if a, _ := w.EnsureActor(-1); a.ID != 0 {
		t.Fatalf("lowest free actor id: got=%d want=0", a.ID)
	}
}

func TestDefaultMapGen(t *testing.T) {
	const length = 32
	for seed := uint32(1); seed <= 5; seed++ {
		cells, err := DefaultMapGen{}.Generate(length, rng.New(seed))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		trees := 0
		for pos, c := range cells {
			switch c {
			case TerrainTree:
				trees++
			case TerrainGround, TerrainWater:
			default:
				t.Fatalf("seed %d: unexpected symbol %q", seed, c)
			}
			y, x := pos/length, pos%length
			if (y == 0 || x == 0 || y == length-1 || x == length-1) && c != TerrainWater {
				t.Fatalf("seed %d: land on the map edge at %d,%d", seed, y, x)
			}
		}
		if want := length*length/16 + 1; trees != want {
			t.Fatalf("seed %d: trees got=%d want=%d", seed, trees, want)
		}
	}
}

func TestDefaultMapGenTinyMapExhausts(t *testing.T) {
	_, err := DefaultMapGen{MaxDraws: 1000}.Generate(1, rng.New(1))
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}
