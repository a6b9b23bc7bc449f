package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/plomlompom/plomrogue-sub000/internal/persistence/archive"
	persistlog "github.com/plomlompom/plomrogue-sub000/internal/persistence/log"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "turns":
			turnsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "status":
			statusCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		}
	}
	saveCmd(os.Args[1:])
}

// saveSummary is what a snapshot says about its world without executing it.
type saveSummary struct {
	Turn       string         `json:"turn"`
	Seed       string         `json:"seed"`
	MapLength  string         `json:"map_length"`
	Active     bool           `json:"active"`
	Lines      int            `json:"lines"`
	Actions    int            `json:"actions"`
	Types      int            `json:"types"`
	Actors     int            `json:"actors"`
	ActorTypes map[string]int `json:"actor_types"`
	Unparsed   int            `json:"unparsed,omitempty"`
}

func summarize(lines []string) saveSummary {
	s := saveSummary{Lines: len(lines), ActorTypes: map[string]int{}}
	typeNames := map[string]string{}
	curType := ""
	for _, line := range lines {
		toks, err := protocol.Tokenize(line)
		if err != nil {
			s.Unparsed++
			continue
		}
		if len(toks) < 2 {
			continue
		}
		switch toks[0] {
		case protocol.VerbTurn:
			s.Turn = toks[1]
		case protocol.VerbSeedRandomness:
			s.Seed = toks[1]
		case protocol.VerbMapLength:
			s.MapLength = toks[1]
		case protocol.VerbWorldActive:
			s.Active = toks[1] == "1"
		case protocol.VerbTAID:
			s.Actions++
		case protocol.VerbTTID:
			s.Types++
			curType = toks[1]
		case protocol.VerbTTName:
			typeNames[curType] = toks[1]
		case protocol.VerbTID:
			s.Actors++
		case protocol.VerbTType:
			name := typeNames[toks[1]]
			if name == "" {
				name = "#" + toks[1]
			}
			s.ActorTypes[name]++
		}
	}
	return s
}

func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("path", "", "snapshot path (optional; defaults to <data>/save)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		p = filepath.Join(*dataDir, "save")
	}
	lines, err := readSnapshotAny(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(lines))

	if rec, err := snapshot.ReadLines(filepath.Join(*dataDir, "record_save")); err == nil && strings.TrimSpace(*path) == "" {
		fmt.Printf("record_save: %d lines\n", len(rec))
	}
}

// readSnapshotAny reads a plain snapshot or an archived .zst copy.
func readSnapshotAny(path string) ([]string, error) {
	if strings.HasSuffix(path, ".zst") {
		return archive.ReadArchive(path)
	}
	return snapshot.ReadLines(path)
}

func turnsCmd(args []string) {
	fs := flag.NewFlagSet("turns", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	from := fs.Int("from", 0, "first turn to print")
	limit := fs.Int("limit", 20, "max entries to print (0: all)")
	_ = fs.Parse(args)

	files, err := persistlog.TurnLogFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list turn logs:", err)
		os.Exit(1)
	}
	printed := 0
	for _, path := range files {
		entries, err := persistlog.ReadTurnLog(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		for _, e := range entries {
			if e.Turn < *from {
				continue
			}
			if *limit > 0 && printed >= *limit {
				return
			}
			fmt.Printf("%d\t%s\tactors=%d\tseed=%d\t%s\n", e.Turn, e.Digest, e.Actors, e.Seed, e.PlayerCommand)
			printed++
		}
	}
}

type archiveEntry struct {
	Dir  string       `json:"dir"`
	Meta archive.Meta `json:"meta"`
}

func listArchives(dataDir string) ([]archiveEntry, error) {
	base := filepath.Join(dataDir, "archives")
	ents, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []archiveEntry
	for _, e := range ents {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "turn_") {
			continue
		}
		dir := filepath.Join(base, e.Name())
		var m archive.Meta
		if b, err := os.ReadFile(filepath.Join(dir, "meta.json")); err == nil {
			_ = json.Unmarshal(b, &m)
		}
		if m.Snapshot == "" {
			m.Snapshot = "save.zst"
		}
		out = append(out, archiveEntry{Dir: dir, Meta: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out, nil
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	list, err := listArchives(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list archives:", err)
		os.Exit(1)
	}
	for _, a := range list {
		fmt.Printf("turn=%d seed=%d actors=%d created=%s %s\n", a.Meta.Turn, a.Meta.Seed, a.Meta.Actors, a.Meta.CreatedAt,
			filepath.Join(a.Dir, a.Meta.Snapshot))
	}
}

// restore replaces the save with an archived snapshot. The old save is kept
// as save.bak. The record log is not rewound, so replays of it no longer
// match the restored save.
func restore(dataDir string, turn int) (string, error) {
	list, err := listArchives(dataDir)
	if err != nil {
		return "", err
	}
	var src string
	for _, a := range list {
		if a.Meta.Turn == turn || filepath.Base(a.Dir) == fmt.Sprintf("turn_%08d", turn) {
			src = filepath.Join(a.Dir, a.Meta.Snapshot)
		}
	}
	if src == "" {
		return "", fmt.Errorf("no archive for turn %d", turn)
	}
	lines, err := archive.ReadArchive(src)
	if err != nil {
		return "", err
	}
	savePath := filepath.Join(dataDir, "save")
	if err := os.Rename(savePath, savePath+".bak"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := snapshot.WriteLines(savePath, lines); err != nil {
		return "", err
	}
	return src, nil
}

func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory (server must be stopped)")
	turn := fs.String("turn", "", "archived turn to restore (required)")
	_ = fs.Parse(args)

	n, err := strconv.Atoi(strings.TrimSpace(*turn))
	if err != nil {
		fmt.Fprintln(os.Stderr, "missing or bad -turn")
		os.Exit(2)
	}
	src, err := restore(*dataDir, n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	fmt.Printf("restored %s (previous save kept as save.bak)\n", src)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
