// Package console wires the field registry, round history and render
// controller into one session and serialises access to them.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/kayz/promptdeck/internal/agent"
	"github.com/kayz/promptdeck/internal/ai"
	"github.com/kayz/promptdeck/internal/fields"
	"github.com/kayz/promptdeck/internal/history"
	"github.com/kayz/promptdeck/internal/logger"
	"github.com/kayz/promptdeck/internal/promptbuild"
	"github.com/kayz/promptdeck/internal/render"
)

// ErrRunInProgress is returned when a model call is already running.
var ErrRunInProgress = errors.New("a model run is already in progress")

// Store is the persistence the console needs.
type Store interface {
	render.Persister
	history.Saver
	LoadSessionState() (history.State, bool)
	LoadFields() ([]fields.Field, error)
	SaveFields(list []fields.Field) error
	LoadInputBox() string
	SaveInputBox(text string)
}

// Options configures a new console.
type Options struct {
	Store Store
	// MultiRound applies when no session state has been saved yet.
	MultiRoundEnabled bool
	MaxRounds         int

	// Used by UseModel.
	Catalog *ai.Registry
	Logs    agent.RunLogger
	Auditor *promptbuild.Auditor
}

// Console is one prompt-editing session.
type Console struct {
	mu sync.Mutex

	store    Store
	registry *fields.Registry
	history  *history.Store
	ctrl     *render.Controller
	input    string

	catalog    *ai.Registry
	logs       agent.RunLogger
	auditor    *promptbuild.Auditor
	runner     *agent.Runner
	running    bool
	cancelRun  context.CancelFunc
	lastOutput string

	viewers []func(render.View)
}

// New restores the session from the store.
func New(opts Options) (*Console, error) {
	if opts.Store == nil {
		return nil, errors.New("console store is required")
	}
	c := &Console{
		store:   opts.Store,
		catalog: opts.Catalog,
		logs:    opts.Logs,
		auditor: opts.Auditor,
	}

	list, err := opts.Store.LoadFields()
	if err != nil {
		return nil, err
	}
	reg, err := fields.NewRegistry(list)
	if err != nil {
		return nil, err
	}
	c.registry = reg

	c.history = history.NewStore(opts.Store)
	if st, ok := opts.Store.LoadSessionState(); ok {
		c.history.Restore(st)
	} else {
		c.history.Restore(history.State{
			MultiRoundEnabled: opts.MultiRoundEnabled,
			MaxRounds:         opts.MaxRounds,
		})
	}

	c.input = opts.Store.LoadInputBox()
	c.ctrl = render.NewController(opts.Store, liveSources{c}, render.DisplayFunc(c.broadcast))

	// Every history mutation happens with c.mu held.
	c.history.OnChange(c.ctrl.Refresh)

	logger.Info("[Console] Session restored: %d fields, %s", len(list), c.history.Indicator())
	return c, nil
}

// liveSources reads the current session. Callers hold c.mu.
type liveSources struct {
	c *Console
}

func (s liveSources) Fields() []fields.Field { return s.c.registry.Substitutable() }
func (s liveSources) History() string        { return s.c.history.Formatted() }
func (s liveSources) InputBox() string       { return s.c.input }

func (c *Console) snapshotLocked() promptbuild.Snapshot {
	return promptbuild.Snapshot{
		FieldList:   c.registry.Substitutable(),
		HistoryText: c.history.Formatted(),
		InputText:   c.input,
	}
}

// OnView registers a callback receiving every refreshed view. Callbacks run
// with the console locked and must not call back into it.
func (c *Console) OnView(fn func(render.View)) {
	c.mu.Lock()
	c.viewers = append(c.viewers, fn)
	c.mu.Unlock()
}

func (c *Console) broadcast(v render.View) {
	for _, fn := range c.viewers {
		fn(v)
	}
}

// Expand expands the canonical template against the current session.
func (c *Console) Expand(mode promptbuild.Mode) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return promptbuild.Expand(c.ctrl.Canonical(), c.snapshotLocked(), mode)
}

// Snapshot returns the current expansion inputs.
func (c *Console) Snapshot() promptbuild.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Console) LastOutput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutput
}
