package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	persistlog "github.com/plomlompom/plomrogue-sub000/internal/persistence/log"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
	"github.com/plomlompom/plomrogue-sub000/internal/server"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/plugins"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/tuning"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

type verifyConfig struct {
	DataDir    string
	TuningPath string
	Plugins    string
	Lines      int
}

type report struct {
	Lines      int
	Turns      int
	Checked    int
	Unlogged   int
	Mismatches []string

	SaveChecked bool
	SaveDigest  string
	FinalDigest string
}

func (r report) ok() bool {
	return len(r.Mismatches) == 0 && (!r.SaveChecked || r.SaveDigest == r.FinalDigest)
}

func main() {
	var cfg verifyConfig
	flag.StringVar(&cfg.DataDir, "data", "./data", "runtime data directory holding record_save, save and turns/")
	flag.StringVar(&cfg.TuningPath, "tuning", "./configs/tuning.yaml", "path to tuning.yaml")
	flag.StringVar(&cfg.Plugins, "plugins", "", "comma separated plugins; overrides the tuning list")
	flag.IntVar(&cfg.Lines, "lines", 0, "replay only the first n record lines (0: all)")
	verbose := flag.Bool("v", false, "log rejected record lines")
	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags|log.Lmicroseconds)
	engineLog := log.New(io.Discard, "", 0)
	if *verbose {
		engineLog = logger
	}

	r, err := verify(cfg, engineLog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	for _, m := range r.Mismatches {
		logger.Print(m)
	}
	if r.SaveChecked && r.SaveDigest != r.FinalDigest {
		logger.Printf("save mismatch: record ends at %s, save is %s", r.FinalDigest, r.SaveDigest)
	}
	fmt.Printf("replayed lines=%d turns=%d checked=%d unlogged=%d mismatches=%d\n",
		r.Lines, r.Turns, r.Checked, r.Unlogged, len(r.Mismatches))
	if !r.ok() {
		os.Exit(1)
	}
	fmt.Println("replay ok")
}

// turnCollector keeps the turn log entries a replay produces.
type turnCollector struct{ entries []world.TurnLogEntry }

func (c *turnCollector) WriteTurn(e world.TurnLogEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func newWorld(cfg verifyConfig) (*world.World, *plugins.Registry, error) {
	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	names := tune.Plugins
	if strings.TrimSpace(cfg.Plugins) != "" {
		names = strings.Split(cfg.Plugins, ",")
	}
	reg := plugins.NewRegistry(log.New(io.Discard, "", 0))
	if err := reg.Apply(names); err != nil {
		return nil, nil, err
	}
	w, err := reg.NewWorld(tune.WorldConfig())
	if err != nil {
		return nil, nil, err
	}
	return w, reg, nil
}

// verify replays record_save headlessly and compares every turn it
// completes with the turn log. The k-th replay of turn T is checked against
// the k-th logged entry for T, so a record spanning several MAKE_WORLDs
// still lines up. A full replay is also checked against the save.
func verify(cfg verifyConfig, logger *log.Logger) (report, error) {
	var r report
	record, err := snapshot.ReadLines(filepath.Join(cfg.DataDir, "record_save"))
	if err != nil {
		return r, fmt.Errorf("read record: %w", err)
	}
	if cfg.Lines <= 0 || cfg.Lines > len(record) {
		cfg.Lines = len(record)
	}
	r.Lines = cfg.Lines

	w, reg, err := newWorld(cfg)
	if err != nil {
		return r, err
	}
	got := &turnCollector{}
	w.SetTurnLogger(got)
	if record == nil {
		record = []string{}
	}
	e := server.New(w, server.Options{Logger: logger, Replay: record, Verbs: reg.Verbs()})
	if err := e.FastForward(cfg.Lines); err != nil && !errors.Is(err, server.ErrQuit) {
		return r, err
	}
	r.Turns = len(got.entries)

	logged, err := loggedTurns(cfg.DataDir)
	if err != nil {
		return r, err
	}
	seen := map[int]int{}
	for _, g := range got.entries {
		k := seen[g.Turn]
		seen[g.Turn]++
		if k >= len(logged[g.Turn]) {
			r.Unlogged++
			continue
		}
		want := logged[g.Turn][k]
		r.Checked++
		if g.Digest != want.Digest || g.Seed != want.Seed || g.Actors != want.Actors {
			r.Mismatches = append(r.Mismatches, fmt.Sprintf("turn %d (%q): got digest=%s seed=%d actors=%d, logged digest=%s seed=%d actors=%d",
				g.Turn, g.PlayerCommand, g.Digest, g.Seed, g.Actors, want.Digest, want.Seed, want.Actors))
		}
	}

	if cfg.Lines < len(record) {
		return r, nil
	}
	save, err := snapshot.ReadLines(filepath.Join(cfg.DataDir, "save"))
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return r, fmt.Errorf("read save: %w", err)
	}
	sw, sreg, err := newWorld(cfg)
	if err != nil {
		return r, err
	}
	if err := server.New(sw, server.Options{Logger: logger, Verbs: sreg.Verbs()}).Load(save); err != nil {
		return r, fmt.Errorf("load save: %w", err)
	}
	r.SaveChecked = true
	r.SaveDigest = sw.StateDigest()
	r.FinalDigest = w.StateDigest()
	return r, nil
}

func loggedTurns(dataDir string) (map[int][]world.TurnLogEntry, error) {
	out := map[int][]world.TurnLogEntry{}
	files, err := persistlog.TurnLogFiles(dataDir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list turn logs: %w", err)
	}
	for _, path := range files {
		entries, err := persistlog.ReadTurnLog(path)
		if err != nil {
			return nil, fmt.Errorf("read turn log: %w", err)
		}
		for _, e := range entries {
			out[e.Turn] = append(out[e.Turn], e)
		}
	}
	return out, nil
}
