package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Terrain Terrain `yaml:"terrain"`
	AI      AI      `yaml:"ai"`
	IO      IO      `yaml:"io"`

	// Extension modules applied before the first command, by name.
	Plugins []string `yaml:"plugins"`
}

type Terrain struct {
	Passable string            `yaml:"passable"`
	Hiding   string            `yaml:"hiding"`
	Names    map[string]string `yaml:"names"`

	ViewRadius     int `yaml:"view_radius"`
	MapGenMaxDraws int `yaml:"mapgen_max_draws"`
}

type AI struct {
	FearDistance       int `yaml:"fear_distance"`
	AttackDistance     int `yaml:"attack_distance"`
	EatThresholdFactor int `yaml:"eat_threshold_factor"`
}

type IO struct {
	SaveIntervalMs int `yaml:"save_interval_ms"`
	ReadPollMs     int `yaml:"read_poll_ms"`
	ReadMaxWaitMs  int `yaml:"read_max_wait_ms"`

	// Every n-th snapshot flush is also archived; 0 disables archiving.
	ArchiveEverySaves int `yaml:"archive_every_saves"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Terrain: Terrain{
			Passable: ".",
			Hiding:   "X",
			Names: map[string]string{
				" ": "unknown",
				".": "ground",
				"X": "tree",
				"~": "water",
			},
			MapGenMaxDraws: 1 << 20,
		},
		AI: AI{
			FearDistance:       5,
			AttackDistance:     1,
			EatThresholdFactor: 1,
		},
		IO: IO{
			SaveIntervalMs:    15000,
			ReadPollMs:        30,
			ReadMaxWaitMs:     5000,
			ArchiveEverySaves: 20,
		},
	}
}

// Load reads path over the defaults, so a partial file only overrides what
// it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	for sym := range t.Terrain.Names {
		if len(sym) != 1 {
			return fmt.Errorf("terrain name key %q is not a single symbol", sym)
		}
	}
	if t.Terrain.ViewRadius < 0 {
		return fmt.Errorf("view_radius %d < 0", t.Terrain.ViewRadius)
	}
	if t.IO.ReadPollMs <= 0 || t.IO.ReadMaxWaitMs < t.IO.ReadPollMs {
		return fmt.Errorf("read_poll_ms=%d read_max_wait_ms=%d", t.IO.ReadPollMs, t.IO.ReadMaxWaitMs)
	}
	if t.IO.SaveIntervalMs < 0 || t.IO.ArchiveEverySaves < 0 {
		return fmt.Errorf("negative io setting")
	}
	return nil
}

// WorldConfig translates the terrain and AI sections for world.New.
func (t Tuning) WorldConfig() world.Config {
	names := make(map[byte]string, len(t.Terrain.Names))
	for sym, name := range t.Terrain.Names {
		if len(sym) == 1 {
			names[sym[0]] = name
		}
	}
	if len(names) == 0 {
		names = nil
	}
	return world.Config{
		Passable:           t.Terrain.Passable,
		Hiding:             t.Terrain.Hiding,
		ViewRadius:         t.Terrain.ViewRadius,
		FearDistance:       t.AI.FearDistance,
		AttackDistance:     t.AI.AttackDistance,
		EatThresholdFactor: t.AI.EatThresholdFactor,
		MaxMapGenDraws:     t.Terrain.MapGenMaxDraws,
		TerrainNames:       names,
	}
}

func (t Tuning) SaveInterval() time.Duration {
	return time.Duration(t.IO.SaveIntervalMs) * time.Millisecond
}

func (t Tuning) ReadPoll() time.Duration {
	return time.Duration(t.IO.ReadPollMs) * time.Millisecond
}

func (t Tuning) ReadMaxWait() time.Duration {
	return time.Duration(t.IO.ReadMaxWaitMs) * time.Millisecond
}
