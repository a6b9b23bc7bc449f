package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// StateDigest hashes everything a replay must reproduce: counters, the map,
// templates, actors with their memories, and the random seed.
func (w *World) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(w.turn))
	h.Write([]byte{boolByte(w.active)})
	digestWriteI64(h, &tmp, int64(w.length))
	digestWriteI64(h, &tmp, int64(w.playerType))
	digestWriteU64(h, &tmp, uint64(w.rand.Seed()))
	digestWriteBytes(h, &tmp, w.cells)

	w.digestTemplates(h, &tmp)
	w.digestActors(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestTemplates(h hashWriter, tmp *[8]byte) {
	for _, id := range w.ActionIDs() {
		a := w.actions[id]
		digestWriteI64(h, tmp, int64(id))
		digestWriteString(h, tmp, a.Name)
		digestWriteI64(h, tmp, int64(a.Effort))
	}
	for _, id := range w.TypeIDs() {
		t := w.types[id]
		digestWriteI64(h, tmp, int64(id))
		digestWriteString(h, tmp, t.Name)
		h.Write([]byte{t.Symbol})
		for _, v := range []int{t.Lifepoints, t.ToolPower, t.StartNumber, t.Storage, t.CorpseID, t.Proliferate} {
			digestWriteI64(h, tmp, int64(v))
		}
		digestWriteString(h, tmp, t.Tool)
		digestWriteIntMap(h, tmp, t.Extra)
	}
}

func (w *World) digestActors(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, uint64(len(w.actors)))
	for _, a := range w.actors {
		for _, v := range []int{a.ID, a.Type, a.Y, a.X, a.Lifepoints, a.Satiation, a.Command, a.Argument, a.Progress} {
			digestWriteI64(h, tmp, int64(v))
		}
		h.Write([]byte{boolByte(a.Carried)})
		digestWriteU64(h, tmp, uint64(len(a.Carries)))
		for _, id := range a.Carries {
			digestWriteI64(h, tmp, int64(id))
		}
		digestWriteBytes(h, tmp, a.Visible)
		digestWriteBytes(h, tmp, a.MemMap)
		digestWriteBytes(h, tmp, a.MemDepth)
		digestWriteU64(h, tmp, uint64(len(a.MemThings)))
		for _, s := range a.MemThings {
			digestWriteI64(h, tmp, int64(s.Type))
			digestWriteI64(h, tmp, int64(s.Y))
			digestWriteI64(h, tmp, int64(s.X))
		}
		digestWriteIntMap(h, tmp, a.Extra)
	}
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

// digestWriteBytes is length-prefixed so nil and empty slices differ from
// their neighbours.
func digestWriteBytes(h hashWriter, tmp *[8]byte, b []byte) {
	if b == nil {
		digestWriteI64(h, tmp, -1)
		return
	}
	digestWriteU64(h, tmp, uint64(len(b)))
	h.Write(b)
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteBytes(h, tmp, []byte(s))
}

func digestWriteIntMap(h hashWriter, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		digestWriteString(h, tmp, k)
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
