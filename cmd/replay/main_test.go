package main

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	persistlog "github.com/plomlompom/plomrogue-sub000/internal/persistence/log"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
	"github.com/plomlompom/plomrogue-sub000/internal/server"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

var session = []string{
	"TA_ID 1", "TA_NAME wait", "TA_EFFORT 1",
	"TA_ID 2", "TA_NAME move", "TA_EFFORT 2",
	"TT_ID 0", "TT_NAME human", "TT_SYMBOL @", "TT_LIFEPOINTS 5", "TT_START_NUMBER 1",
	"TT_ID 1", "TT_NAME beast", "TT_SYMBOL b", "TT_LIFEPOINTS 1", "TT_START_NUMBER 2",
	"PLAYER_TYPE 0",
	"MAP_LENGTH 12",
	"MAKE_WORLD 77",
	"wait", "ai", "ai", "move east", "wait", "ai",
}

type tamper struct {
	next world.TurnLogger
	turn int
}

func (t tamper) WriteTurn(e world.TurnLogEntry) error {
	if e.Turn == t.turn {
		e.Digest = strings.Repeat("0", 64)
	}
	return t.next.WriteTurn(e)
}

// play runs session through a live engine the way the server does and
// leaves record_save, save and turns/ under dir.
func play(t *testing.T, dir string, tamperTurn int) verifyConfig {
	t.Helper()
	cfg := verifyConfig{DataDir: dir, TuningPath: filepath.Join(dir, "missing.yaml")}
	w, reg, err := newWorld(cfg)
	if err != nil {
		t.Fatalf("newWorld: %v", err)
	}
	tl := persistlog.NewTurnLogger(dir)
	w.SetTurnLogger(tamper{next: tl, turn: tamperTurn})

	e := server.New(w, server.Options{Logger: log.New(io.Discard, "", 0), SaveInterval: time.Hour, Verbs: reg.Verbs()})
	for _, line := range session {
		if err := e.Obey(line); err != nil {
			t.Fatalf("Obey(%q): %v", line, err)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := snapshot.WriteLines(filepath.Join(dir, "record_save"), e.Pending()); err != nil {
		t.Fatalf("write record: %v", err)
	}
	if err := snapshot.WriteLines(filepath.Join(dir, "save"), w.SnapshotLines()); err != nil {
		t.Fatalf("write save: %v", err)
	}
	return cfg
}

func TestVerify_CleanRecord(t *testing.T) {
	cfg := play(t, t.TempDir(), -1)
	r, err := verify(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !r.ok() {
		t.Fatalf("report not ok: %+v", r)
	}
	if r.Lines != len(session) || r.Checked == 0 || r.Checked != r.Turns || r.Unlogged != 0 {
		t.Fatalf("report: %+v", r)
	}
	if !r.SaveChecked {
		t.Fatalf("save not checked")
	}
}

func TestVerify_ReportsTamperedTurn(t *testing.T) {
	cfg := play(t, t.TempDir(), 2)
	r, err := verify(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(r.Mismatches) != 1 || !strings.HasPrefix(r.Mismatches[0], "turn 2 ") {
		t.Fatalf("mismatches: %q", r.Mismatches)
	}
}

func TestVerify_PartialSkipsSave(t *testing.T) {
	cfg := play(t, t.TempDir(), -1)
	cfg.Lines = len(session) - 3
	r, err := verify(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if r.SaveChecked || !r.ok() {
		t.Fatalf("report: %+v", r)
	}
}

func TestVerify_MissingRecord(t *testing.T) {
	if _, err := verify(verifyConfig{DataDir: t.TempDir()}, log.New(io.Discard, "", 0)); err == nil {
		t.Fatalf("expected error without record_save")
	}
}
