package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/plomlompom/plomrogue-sub000/internal/config"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/indexdb"
	persistlog "github.com/plomlompom/plomrogue-sub000/internal/persistence/log"
	"github.com/plomlompom/plomrogue-sub000/internal/persistence/snapshot"
	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/server"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/plugins"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/tuning"
	"github.com/plomlompom/plomrogue-sub000/internal/transport/observer"
)

type runConfig struct {
	DataDir      string
	TuningPath   string
	WorldConfig  string
	Replay       bool
	ReplayLines  int
	Plugins      string
	ObserveAddr  string
	IndexBackend string
	DisableDB    bool
}

func main() {
	var envCfg config.Server
	if err := config.ParseEnv(&envCfg); err != nil {
		log.Fatalf("%v", err)
	}

	var cfg runConfig
	flag.StringVar(&cfg.DataDir, "data", envCfg.DataDir, "runtime data directory (save, record_save, server/ channels)")
	flag.StringVar(&cfg.TuningPath, "tuning", envCfg.TuningPath, "path to tuning.yaml")
	flag.StringVar(&cfg.WorldConfig, "world_config", envCfg.WorldConfig, "commands defining a fresh world")
	flag.BoolVar(&cfg.Replay, "replay", false, "replay record_save instead of playing")
	flag.IntVar(&cfg.ReplayLines, "replay_lines", 0, "record lines to replay right away (with -replay)")
	flag.StringVar(&cfg.Plugins, "plugins", "", "comma separated plugins; overrides the tuning list ("+strings.Join(plugins.Builtin(), ",")+")")
	flag.StringVar(&cfg.ObserveAddr, "observe_addr", envCfg.ObserveAddr, "observer http listen address (empty to disable)")
	flag.BoolVar(&cfg.DisableDB, "disable_db", envCfg.DisableDB, "disable the sqlite index")
	flag.Parse()
	cfg.IndexBackend = envCfg.IndexBackend

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if err := run(cfg, logger); err != nil {
		logger.Printf("exit: %v", err)
		os.Exit(1)
	}
}

func run(cfg runConfig, logger *log.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("load tuning: %w", err)
		}
		logger.Printf("tuning not found (%s); using defaults", cfg.TuningPath)
		tune = tuning.Defaults()
	}

	names := tune.Plugins
	if strings.TrimSpace(cfg.Plugins) != "" {
		names = strings.Split(cfg.Plugins, ",")
	}
	reg := plugins.NewRegistry(log.New(os.Stdout, "[plugins] ", log.LstdFlags|log.Lmicroseconds))
	if err := reg.Apply(names); err != nil {
		return err
	}
	w, err := reg.NewWorld(tune.WorldConfig())
	if err != nil {
		return err
	}

	// Optional: read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(cfg.DataDir, cfg.IndexBackend, cfg.DisableDB || cfg.Replay)
	if err != nil {
		return fmt.Errorf("open index backend: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	// A replay must not extend the logs it is replaying.
	if !cfg.Replay {
		turnLog := persistlog.NewTurnLogger(cfg.DataDir)
		defer turnLog.Close()
		w.SetTurnLogger(&multiTurnLogger{a: turnLog, b: idx, logger: logger})
	}

	ch, err := server.OpenChannels(filepath.Join(cfg.DataDir, "server"))
	if err != nil {
		return err
	}

	exporters := multiExporter{ch}
	var obs *observer.Server
	if cfg.ObserveAddr != "" {
		obs = observer.NewServer(log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
		exporters = append(exporters, obs)
	}

	opts := server.Options{
		Logger:       logger,
		Out:          ch,
		Saver:        newDiskSaver(cfg.DataDir, w, idx, tune.IO.ArchiveEverySaves, logger),
		Exporter:     exporters,
		Liveness:     ch.CheckLiveness,
		SaveInterval: tune.SaveInterval(),
		Verbs:        reg.Verbs(),
	}
	recordPath := filepath.Join(cfg.DataDir, "record_save")
	if cfg.Replay {
		lines, err := snapshot.ReadLines(recordPath)
		if err != nil {
			_ = ch.Cleanup()
			return fmt.Errorf("replay: %w", err)
		}
		opts.Replay = lines
		if opts.Replay == nil {
			opts.Replay = []string{}
		}
	}
	e := server.New(w, opts)

	if err := start(cfg, e, logger); err != nil {
		return finish(err, e, ch, logger)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if obs != nil {
		srv := &http.Server{
			Addr:              cfg.ObserveAddr,
			Handler:           observerMux(obs, idx),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-ctx.Done()
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
		go func() {
			logger.Printf("observer listening on %s", cfg.ObserveAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("observer: %v", err)
			}
		}()
	}

	logger.Printf("reading commands from %s", ch.InPath)
	return finish(server.Run(ctx, e, ch, tune.ReadPoll(), tune.ReadMaxWait()), e, ch, logger)
}

// start brings the world up: fast-forward in replay mode, else restore the
// save, else define a fresh world and make it.
func start(cfg runConfig, e *server.Engine, logger *log.Logger) error {
	if cfg.Replay {
		logger.Printf("replay mode: %d record lines, fast-forwarding %d", e.ReplayRemaining(), cfg.ReplayLines)
		return e.FastForward(cfg.ReplayLines)
	}
	savePath := filepath.Join(cfg.DataDir, "save")
	lines, err := snapshot.ReadLines(savePath)
	switch {
	case err == nil:
		logger.Printf("resuming from %s (%d lines)", savePath, len(lines))
		return e.Load(lines)
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read save: %w", err)
	}

	def, err := snapshot.ReadLines(cfg.WorldConfig)
	if err != nil {
		return fmt.Errorf("read world config: %w", err)
	}
	logger.Printf("fresh world from %s", cfg.WorldConfig)
	for _, line := range def {
		if err := e.Obey(line); err != nil {
			return err
		}
	}
	return e.Obey(protocol.Line(protocol.VerbMakeWorld, strconv.FormatInt(time.Now().Unix()&0xffffffff, 10)))
}

// finish maps the end of the command loop to cleanup. A superseded process
// leaves the channel files to whoever replaced it.
func finish(err error, e *server.Engine, ch *server.Channels, logger *log.Logger) error {
	switch {
	case err == nil, errors.Is(err, server.ErrQuit):
		_ = ch.Cleanup()
		return nil
	case errors.Is(err, context.Canceled):
		ferr := e.Flush()
		_ = ch.Cleanup()
		return ferr
	case errors.Is(err, server.ErrSuperseded):
		_ = ch.Close()
		logger.Printf("superseded by another process; leaving %s alone", filepath.Dir(ch.InPath))
		return err
	default:
		_ = ch.Cleanup()
		return err
	}
}

func observerMux(obs *observer.Server, idx *indexdb.SQLiteIndex) *http.ServeMux {
	mux := obs.Mux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, obs, idx)
	})
	return mux
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
