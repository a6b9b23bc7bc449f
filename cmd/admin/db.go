package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index.db)")
	from := fs.Int("from", 0, "first turn (turns)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index.db")
	}
	db, err := indexdb.OpenReadOnly(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		rows, err := indexdb.Snapshots(db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(map[string]any{
				"turn":        r.Turn,
				"recorded_at": r.RecordedAt,
				"path":        r.Path,
				"seed":        r.Seed,
				"actors":      r.Actors,
				"lines":       r.Lines,
			})
		}
	case "turns":
		rows, err := indexdb.Turns(db, *from, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(map[string]any{
				"turn":           r.Turn,
				"digest":         r.Digest,
				"actors":         r.Actors,
				"seed":           r.Seed,
				"player_command": r.PlayerCommand,
			})
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(snapshots|turns)")
		os.Exit(2)
	}
}
