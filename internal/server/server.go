package server

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/plomlompom/plomrogue-sub000/internal/protocol"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/plugins"
	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

var (
	// ErrQuit is returned by Obey after a QUIT command has been handled.
	ErrQuit = errors.New("server: quit")
	// ErrSuperseded means another process took over the IO channel files.
	ErrSuperseded = errors.New("server: superseded by another process")
)

type Handler func(e *Engine, args []string) error

// Command is one entry of the verb table. Argc counts the tokens after the
// verb. Meta commands are neither replayed nor recorded.
type Command struct {
	Argc    int
	Meta    bool
	Handler Handler
}

type Output interface {
	Send(line string) error
}

// Saver persists a snapshot and appends the pending record lines.
type Saver interface {
	Save(snapshot, record []string) error
}

// Exporter receives the world-state export whenever it is refreshed.
type Exporter interface {
	Publish(turn int, text string) error
	Withdraw() error
}

type Options struct {
	Logger   *log.Logger
	Out      Output
	Saver    Saver
	Exporter Exporter

	// Liveness runs before every obeyed line. A non-nil error is fatal.
	Liveness func() error

	// Replay switches the engine into replay mode over these record lines.
	Replay []string

	SaveInterval time.Duration
	Now          func() time.Time

	Verbs map[string]plugins.Verb
}

// Engine is the command protocol state machine around one world.
type Engine struct {
	w        *world.World
	logger   *log.Logger
	out      Output
	saver    Saver
	exporter Exporter
	liveness func() error
	now      func() time.Time

	cmds map[string]Command

	actionID  int
	typeID    int
	actorID   int
	hasAction bool
	hasType   bool
	hasActor  bool

	replaying bool
	replay    []string
	replayPos int

	pending      []string
	saveInterval time.Duration
	lastFlush    time.Time

	sendErr error
}

func New(w *world.World, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		w:            w,
		logger:       logger,
		out:          opts.Out,
		saver:        opts.Saver,
		exporter:     opts.Exporter,
		liveness:     opts.Liveness,
		now:          now,
		replaying:    opts.Replay != nil,
		replay:       opts.Replay,
		saveInterval: opts.SaveInterval,
		lastFlush:    now(),
	}
	e.cmds = baseCommands()
	for _, f := range w.Fields() {
		e.cmds[f.Name] = fieldCommand(f)
	}
	for name, v := range opts.Verbs {
		e.cmds[name] = pluginCommand(v)
	}
	w.SetMessenger(e)
	return e
}

func (e *Engine) World() *world.World { return e.w }
func (e *Engine) Replaying() bool     { return e.replaying }

// ReplayRemaining is the number of record lines not yet replayed.
func (e *Engine) ReplayRemaining() int { return len(e.replay) - e.replayPos }

// Pending returns the record lines not yet flushed.
func (e *Engine) Pending() []string { return e.pending }

// Log implements world.Messenger.
func (e *Engine) Log(msg string) {
	_ = e.send(protocol.MsgLog + " " + protocol.Quote(msg))
}

func (e *Engine) send(line string) error {
	if e.out == nil || e.sendErr != nil {
		return e.sendErr
	}
	if err := e.out.Send(line); err != nil {
		e.sendErr = fmt.Errorf("send: %w", err)
	}
	return e.sendErr
}

// Obey handles one line from the input channel. Only fatal conditions are
// returned; rejected lines are logged and dropped.
func (e *Engine) Obey(line string) error {
	if e.liveness != nil {
		if err := e.liveness(); err != nil {
			return err
		}
	}
	return e.dispatch(line, true)
}

// Load executes lines without recording or replay interception. It restores
// snapshots and feeds headless replays.
func (e *Engine) Load(lines []string) error {
	for _, line := range lines {
		if err := e.dispatch(line, false); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
	}
	return nil
}

// FastForward replays up to n record lines without waiting for input.
func (e *Engine) FastForward(n int) error {
	for i := 0; i < n && e.replayPos < len(e.replay); i++ {
		if err := e.replayStep(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) dispatch(line string, live bool) error {
	toks, err := protocol.Tokenize(line)
	if err != nil {
		e.reject(line, err)
		return nil
	}
	if len(toks) == 0 {
		return nil
	}
	cmd, ok := e.cmds[toks[0]]
	if !ok || len(toks)-1 != cmd.Argc {
		code := protocol.ErrBadArity
		if !ok {
			code = protocol.ErrUnknownVerb
		}
		e.reject(line, protocol.Errorf(code, "invalid command/argument, or bad number of tokens"))
		return nil
	}
	if cmd.Meta {
		return e.execute(line, toks, cmd, false)
	}
	if protocol.IsPlayerVerb(toks[0]) && !e.w.Active() {
		e.reject(line, protocol.Errorf(protocol.ErrPrecondition, "no player actions on inactive world"))
		return nil
	}
	if live && e.replaying {
		return e.replayStep()
	}
	return e.execute(line, toks, cmd, live)
}

func (e *Engine) replayStep() error {
	if e.replayPos >= len(e.replay) {
		e.reject("", protocol.Errorf(protocol.ErrReplayExhausted, "nothing more to replay"))
		return nil
	}
	line := e.replay[e.replayPos]
	e.replayPos++
	return e.dispatch(line, false)
}

func (e *Engine) execute(line string, toks []string, cmd Command, record bool) error {
	if err := cmd.Handler(e, toks[1:]); err != nil {
		var perr *protocol.Error
		if !errors.As(err, &perr) {
			return err
		}
		e.reject(line, perr)
		return e.sendErr
	}
	if e.sendErr != nil {
		return e.sendErr
	}
	if cmd.Meta {
		return nil
	}
	if record {
		e.pending = append(e.pending, line)
	}
	e.w.MarkWorldstateDue()
	if err := e.refresh(); err != nil {
		return err
	}
	if record && e.now().Sub(e.lastFlush) >= e.saveInterval {
		return e.Flush()
	}
	return nil
}

func (e *Engine) reject(line string, err error) {
	if line == "" {
		e.logger.Printf("%v", err)
		return
	}
	e.logger.Printf("drop %q: %v", line, err)
}

// refresh rewrites the world-state export if it is due.
func (e *Engine) refresh() error {
	if !e.w.WorldstateDue() {
		return nil
	}
	text, err := e.w.Worldstate()
	if err != nil {
		// No player left to render for.
		e.reject("", err)
		e.w.ClearWorldstateDue()
		return nil
	}
	if e.exporter != nil {
		if err := e.exporter.Publish(e.w.Turn(), text); err != nil {
			return fmt.Errorf("publish worldstate: %w", err)
		}
	}
	e.w.ClearWorldstateDue()
	return e.send(protocol.MsgWorldUpdated)
}

// Flush writes a snapshot and the pending record lines. Replay mode never
// writes.
func (e *Engine) Flush() error {
	if e.replaying || e.saver == nil {
		return nil
	}
	if err := e.saver.Save(e.w.SnapshotLines(), e.pending); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	e.pending = nil
	e.lastFlush = e.now()
	return nil
}
