package plugins

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/plomlompom/plomrogue-sub000/internal/sim/world"
)

var ErrFrozen = errors.New("plugins: registry frozen")

// Verb is an extra protocol verb contributed by a plugin. Meta verbs are
// neither replayed nor recorded.
type Verb struct {
	Argc    int
	Meta    bool
	Handler func(w *world.World, out func(line string), args []string) error
}

type Plugin interface {
	Name() string
	Register(r *Registry) error
}

var builtin = map[string]func() Plugin{
	"islands": func() Plugin { return islandsPlugin{} },
	"burden":  func() Plugin { return burdenPlugin{} },
	"famine":  func() Plugin { return faminePlugin{} },
}

// Builtin lists the compiled-in plugin names.
func Builtin() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry collects hooks, fields and verbs from plugins. It is applied once
// and frozen when the world is built from it.
type Registry struct {
	logger  *log.Logger
	hooks   world.Hooks
	fields  []world.FieldSpec
	verbs   map[string]Verb
	applied []string
	done    bool
	frozen  bool
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.Writer(), "[plugins] ", log.LstdFlags)
	}
	return &Registry{logger: logger, verbs: map[string]Verb{}}
}

func (r *Registry) Logger() *log.Logger { return r.logger }
func (r *Registry) Applied() []string   { return r.applied }

// Hooks returns the hooks registered so far. Unset hooks are nil.
func (r *Registry) Hooks() world.Hooks { return r.hooks }

func (r *Registry) set(fn func()) error {
	if r.frozen {
		return ErrFrozen
	}
	fn()
	return nil
}

func (r *Registry) SetMapGenerator(g world.MapGenerator) error {
	return r.set(func() { r.hooks.MapGen = g })
}

func (r *Registry) SetReproduction(t world.ReproductionTest) error {
	return r.set(func() { r.hooks.Reproduce = t })
}

func (r *Registry) SetEffort(c world.EffortCalculator) error {
	return r.set(func() { r.hooks.Effort = c })
}

func (r *Registry) SetLifepoints(h world.LifepointHandler) error {
	return r.set(func() { r.hooks.Lifepoints = h })
}

func (r *Registry) SetAI(s world.AIStrategy) error {
	return r.set(func() { r.hooks.AI = s })
}

func (r *Registry) AddField(f world.FieldSpec) error {
	if r.frozen {
		return ErrFrozen
	}
	for _, g := range r.fields {
		if g.Name == f.Name {
			return fmt.Errorf("field %s registered twice", f.Name)
		}
	}
	r.fields = append(r.fields, f)
	return nil
}

func (r *Registry) AddVerb(name string, v Verb) error {
	if r.frozen {
		return ErrFrozen
	}
	if _, ok := r.verbs[name]; ok {
		return fmt.Errorf("verb %s registered twice", name)
	}
	if v.Handler == nil {
		return fmt.Errorf("verb %s: nil handler", name)
	}
	r.verbs[name] = v
	return nil
}

// Verbs returns the plugin verbs by name.
func (r *Registry) Verbs() map[string]Verb { return r.verbs }

// Apply registers the named built-in plugins in order. It may only run once.
func (r *Registry) Apply(names []string) error {
	if r.done || r.frozen {
		return fmt.Errorf("apply plugins: %w", ErrFrozen)
	}
	r.done = true
	for _, name := range names {
		mk, ok := builtin[name]
		if !ok {
			return fmt.Errorf("apply plugins: unknown plugin %q", name)
		}
		p := mk()
		if err := p.Register(r); err != nil {
			return fmt.Errorf("apply plugin %s: %w", p.Name(), err)
		}
		r.applied = append(r.applied, p.Name())
		r.logger.Printf("plugin %s applied", p.Name())
	}
	return nil
}

// NewWorld freezes the registry and builds a world with its hooks and fields.
func (r *Registry) NewWorld(cfg world.Config) (*world.World, error) {
	r.frozen = true
	r.done = true
	w := world.New(cfg, r.hooks)
	for _, f := range r.fields {
		if err := w.RegisterField(f); err != nil {
			return nil, fmt.Errorf("register field: %w", err)
		}
	}
	return w, nil
}
