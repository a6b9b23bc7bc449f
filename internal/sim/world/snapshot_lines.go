package world

import (
	"strconv"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
)

// SnapshotLines returns the command lines that rebuild this world when
// obeyed by a fresh server. Order matters: MAP_LENGTH clears actors, types
// must exist before they are referenced and carried actors must exist before
// T_CARRIES names them.
func (w *World) SnapshotLines() []string {
	var out []string
	emit := func(verb string, args ...string) {
		out = append(out, protocol.Line(verb, args...))
	}
	n := strconv.Itoa
	q := protocol.Quote

	emit(protocol.VerbTurn, n(w.turn))
	emit(protocol.VerbMapLength, n(w.length))
	if w.cells != nil {
		for y := 0; y < w.length; y++ {
			emit(protocol.VerbMap, n(y), q(string(w.cells[y*w.length:(y+1)*w.length])))
		}
	}
	for _, id := range w.ActionIDs() {
		a := w.actions[id]
		emit(protocol.VerbTAID, n(id))
		emit(protocol.VerbTAEffort, n(a.Effort))
		emit(protocol.VerbTAName, q(a.Name))
	}
	typeIDs := w.TypeIDs()
	for _, id := range typeIDs {
		t := w.types[id]
		emit(protocol.VerbTTID, n(id))
		emit(protocol.VerbTTName, q(t.Name))
		emit(protocol.VerbTTSymbol, q(string([]byte{t.Symbol})))
		emit(protocol.VerbTTLifepoints, n(t.Lifepoints))
		emit(protocol.VerbTTTool, q(t.Tool))
		emit(protocol.VerbTTToolPower, n(t.ToolPower))
		emit(protocol.VerbTTStartNumber, n(t.StartNumber))
		emit(protocol.VerbTTStorage, n(t.Storage))
		emit(protocol.VerbTTProliferate, n(t.Proliferate))
		w.emitFields(emit, ScopeType, t.Extra)
	}
	// Corpse types may point forward, so they go in a second pass.
	for _, id := range typeIDs {
		emit(protocol.VerbTTID, n(id))
		emit(protocol.VerbTTCorpseID, n(w.types[id].CorpseID))
	}
	if w.types[w.playerType] != nil {
		emit(protocol.VerbPlayerType, n(w.playerType))
	}
	for _, a := range w.actors {
		emit(protocol.VerbTID, n(a.ID))
		emit(protocol.VerbTType, n(a.Type))
		emit(protocol.VerbTPosY, n(a.Y))
		emit(protocol.VerbTPosX, n(a.X))
		emit(protocol.VerbTLifepoints, n(a.Lifepoints))
		emit(protocol.VerbTSatiation, n(a.Satiation))
		emit(protocol.VerbTCommand, n(a.Command))
		emit(protocol.VerbTArgument, n(a.Argument))
		emit(protocol.VerbTProgress, n(a.Progress))
		w.emitFields(emit, ScopeActor, a.Extra)
		if a.MemMap != nil {
			for y := 0; y < w.length; y++ {
				emit(protocol.VerbTMemMap, n(y), q(string(a.MemMap[y*w.length:(y+1)*w.length])))
			}
		}
		if a.MemDepth != nil {
			for y := 0; y < w.length; y++ {
				emit(protocol.VerbTMemDepthMap, n(y), q(string(a.MemDepth[y*w.length:(y+1)*w.length])))
			}
		}
		for _, s := range a.MemThings {
			emit(protocol.VerbTMemThing, n(s.Type), n(s.Y), n(s.X))
		}
	}
	for _, a := range w.actors {
		if len(a.Carries) == 0 {
			continue
		}
		emit(protocol.VerbTID, n(a.ID))
		for _, id := range a.Carries {
			emit(protocol.VerbTCarries, n(id))
		}
	}
	emit(protocol.VerbSeedRandomness, strconv.FormatUint(uint64(w.rand.Seed()), 10))
	active := "0"
	if w.active {
		active = "1"
	}
	emit(protocol.VerbWorldActive, active)
	return out
}

func (w *World) emitFields(emit func(string, ...string), scope FieldScope, values map[string]int) {
	for _, f := range w.fields {
		if f.Scope == scope {
			emit(f.Name, strconv.Itoa(values[f.Name]))
		}
	}
}
