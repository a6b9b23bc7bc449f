package plugins

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/rng"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(buf, "[plugins] ", 0)
}

func TestRegistry_ApplyOnce(t *testing.T) {
	r := NewRegistry(testLogger(&bytes.Buffer{}))
	if err := r.Apply([]string{"burden", "famine"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := strings.Join(r.Applied(), ","); got != "burden,famine" {
		t.Fatalf("applied: got=%s", got)
	}
	if err := r.Apply([]string{"islands"}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("second Apply: got %v want ErrFrozen", err)
	}
}

func TestRegistry_UnknownPlugin(t *testing.T) {
	r := NewRegistry(testLogger(&bytes.Buffer{}))
	if err := r.Apply([]string{"volcanoes"}); err == nil {
		t.Fatalf("unknown plugin accepted")
	}
}

func TestRegistry_FrozenAfterNewWorld(t *testing.T) {
	r := NewRegistry(testLogger(&bytes.Buffer{}))
	if err := r.Apply([]string{"burden"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, err := r.NewWorld(world.Config{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	if _, ok := w.Field(FieldBurden); !ok {
		t.Fatalf("burden field not registered on the world")
	}
	if tt := w.EnsureActorType(0); tt.Extra[FieldBurden] != 0 {
		t.Fatalf("burden default: got=%d", tt.Extra[FieldBurden])
	}
	if err := r.AddVerb("LATE", Verb{Handler: reportBurden}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("AddVerb after freeze: got %v", err)
	}
	if err := r.SetAI(world.DefaultAI{}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("SetAI after freeze: got %v", err)
	}
}

func TestBurden_SlowsMovement(t *testing.T) {
	r := NewRegistry(testLogger(&bytes.Buffer{}))
	if err := r.Apply([]string{"burden"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	w, err := r.NewWorld(world.Config{})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	carrier := w.EnsureActorType(0)
	carrier.Storage = 2
	rock := w.EnsureActorType(1)
	rock.Extra[FieldBurden] = 25
	move := w.EnsureActionType(0)
	if err := w.RenameAction(move, world.ActMove); err != nil {
		t.Fatalf("RenameAction: %v", err)
	}
	a, _ := w.EnsureActor(0)
	for i := 1; i <= 2; i++ {
		item, _ := w.EnsureActor(i)
		if err := w.SetActorType(item, 1); err != nil {
			t.Fatalf("SetActorType: %v", err)
		}
		if err := w.Carry(a, i); err != nil {
			t.Fatalf("Carry: %v", err)
		}
	}
	eff := burdenEffort{next: world.DefaultEffort{}}
	if got := eff.Effort(w, a, move); got != 1+50/burdenPerTurn {
		t.Fatalf("move effort: got=%d want=%d", got, 1+50/burdenPerTurn)
	}
	if got := eff.Effort(w, a, &world.ActionType{Name: world.ActWait, Effort: 1}); got != 1 {
		t.Fatalf("wait effort: got=%d want=1", got)
	}

	var lines []string
	if err := r.Verbs()["BURDEN"].Handler(w, func(l string) { lines = append(lines, l) }, nil); err != nil {
		t.Fatalf("BURDEN: %v", err)
	}
	if len(lines) != 1 || lines[0] != "BURDEN 50" {
		t.Fatalf("BURDEN output: %q", lines)
	}
}

func TestFamine(t *testing.T) {
	var buf bytes.Buffer
	w := world.New(world.Config{}, world.Hooks{})
	tt := w.EnsureActorType(0)
	tt.Proliferate = 1
	a, _ := w.EnsureActor(3)

	repro := famineReproduction{next: world.DefaultReproduction{}}
	if !repro.CanReproduce(w, a) {
		t.Fatalf("fed actor may reproduce")
	}
	a.Satiation = -1
	if repro.CanReproduce(w, a) {
		t.Fatalf("hungry actor reproduced")
	}

	a.Lifepoints = 1
	lp := famineLifepoints{next: world.DefaultLifepoints{}, logger: testLogger(&buf)}
	if left := lp.Decrement(w, a); left != 0 {
		t.Fatalf("lifepoints left: got=%d want=0", left)
	}
	if !strings.Contains(buf.String(), "thing 3 died hungry") {
		t.Fatalf("log: %q", buf.String())
	}
}

func TestArchipelago(t *testing.T) {
	const length = 32
	for seed := uint32(1); seed <= 3; seed++ {
		cells, err := Archipelago{}.Generate(length, rng.New(seed))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		land, trees := 0, 0
		for pos, c := range cells {
			y, x := pos/length, pos%length
			edge := y == 0 || x == 0 || y == length-1 || x == length-1
			if edge && c != world.TerrainWater {
				t.Fatalf("seed %d: land on edge at %d,%d", seed, y, x)
			}
			switch c {
			case world.TerrainTree:
				trees++
				land++
			case world.TerrainGround:
				land++
			}
		}
		if land != length*length/3 {
			t.Fatalf("seed %d: land got=%d want=%d", seed, land, length*length/3)
		}
		if trees != length*length/16+1 {
			t.Fatalf("seed %d: trees got=%d want=%d", seed, trees, length*length/16+1)
		}
	}
	if _, err := (Archipelago{}).Generate(2, rng.New(1)); err == nil {
		t.Fatalf("accepted a 2x2 map")
	}
}
