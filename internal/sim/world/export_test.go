package world

import (
	"strings"
	"testing"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
)

func exportWorld(t *testing.T) *World {
	t.Helper()
	w, _ := newTestWorld(t, Config{}, 5)
	addActor(t, w, typeHuman, 2, 2)
	addActor(t, w, typeMeat, 1, 1)
	addActor(t, w, typeBeast, 1, 1)
	activate(t, w)
	w.SetTurn(3)
	return w
}

func TestWorldstate_Layout(t *testing.T) {
	w := exportWorld(t)
	text, err := w.Worldstate()
	if err != nil {
		t.Fatalf("Worldstate: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	head := []string{"3", "10", "0", "(none)", "%", "2", "2", "5"}
	if len(lines) != len(head)+10 {
		t.Fatalf("line count: got=%d want=%d", len(lines), len(head)+10)
	}
	for i, want := range head {
		if lines[i] != want {
			t.Fatalf("line %d: got=%q want=%q", i, lines[i], want)
		}
	}
	visible := lines[len(head) : len(head)+5]
	if visible[1] != ".b..." || visible[2] != "..@.." {
		t.Fatalf("visible grid: %q", visible)
	}
	memory := lines[len(head)+5:]
	if memory[1] != ".m..." || memory[2] != "....." {
		t.Fatalf("memory grid: %q", memory)
	}
}

func TestThingsHere(t *testing.T) {
	w := exportWorld(t)
	got, err := w.ThingsHere(1, 1)
	if err != nil {
		t.Fatalf("ThingsHere: %v", err)
	}
	want := []string{"terrain: ground", "beast", "meat"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got=%q want=%q", got, want)
	}
	if _, err := w.ThingsHere(5, 0); err == nil {
		t.Fatalf("accepted position outside the map")
	}
	w.Deactivate()
	if _, err := w.ThingsHere(1, 1); err == nil {
		t.Fatalf("accepted on inactive world")
	}
}

func TestSnapshotLines_Order(t *testing.T) {
	w := exportWorld(t)
	lines := w.SnapshotLines()
	if lines[0] != "TURN 3" || lines[1] != "MAP_LENGTH 5" {
		t.Fatalf("head: %q", lines[:2])
	}
	if lines[len(lines)-1] != "WORLD_ACTIVE 1" {
		t.Fatalf("tail: %q", lines[len(lines)-1])
	}
	if !strings.HasPrefix(lines[len(lines)-2], protocol.VerbSeedRandomness+" ") {
		t.Fatalf("seed line: %q", lines[len(lines)-2])
	}
	index := func(prefix string) int {
		for i, l := range lines {
			if strings.HasPrefix(l, prefix) {
				return i
			}
		}
		return -1
	}
	if !(index("MAP 0") < index("TA_ID") && index("TA_ID") < index("TT_ID") &&
		index("TT_CORPSE_ID") < index("PLAYER_TYPE") && index("PLAYER_TYPE") < index("T_ID")) {
		t.Fatalf("section order wrong: %q", lines)
	}
}

func TestStateDigest_TracksState(t *testing.T) {
	a, b := exportWorld(t), exportWorld(t)
	if a.StateDigest() != b.StateDigest() {
		t.Fatalf("identical worlds digest differently")
	}
	b.Player().Satiation = 1
	if a.StateDigest() == b.StateDigest() {
		t.Fatalf("digest ignores satiation")
	}
}
